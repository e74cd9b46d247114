package inventory

import "github.com/shopspring/decimal"

// CostCalculator implementa la lógica de costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
func CostCalculator(stockActual, costoActual, cantEntrada, costoEntrada decimal.Decimal) decimal.Decimal {
	sum := stockActual.Add(cantEntrada)
	if sum.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	num := stockActual.Mul(costoActual).Add(cantEntrada.Mul(costoEntrada))
	return num.Div(sum)
}

// WeightedUnitCost costo unitario tras recibir mercancía. Con stock previo negativo o nulo
// el costo de la entrada reemplaza al anterior.
func WeightedUnitCost(stockBefore int, currentCost decimal.Decimal, received int, receivedCost decimal.Decimal) decimal.Decimal {
	if received <= 0 {
		return currentCost
	}
	if stockBefore <= 0 {
		return receivedCost.Round(4)
	}
	return CostCalculator(
		decimal.NewFromInt(int64(stockBefore)), currentCost,
		decimal.NewFromInt(int64(received)), receivedCost,
	).Round(4)
}
