// utils/math.go
package utils

import "math"

// Epsilon is the tolerance for comparing values derived from float price arithmetic.
const Epsilon = 1e-9

// RoundToPrecision rounds a float64 to a specified number of decimal places.
func RoundToPrecision(value float64, precision int) float64 {
	pow := math.Pow(10, float64(precision))
	return math.Round(value*pow) / pow
}

// PipsToPrice converts a distance in pips into a price distance.
func PipsToPrice(pips, pipSize float64) float64 {
	return pips * pipSize
}
