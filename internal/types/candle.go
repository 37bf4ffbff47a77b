package types

import "time"

// Candle is one OHLCV data point for a trading pair.
type Candle struct {
	Time   time.Time `yaml:"time" json:"time"`
	Open   float64   `yaml:"open" json:"open"`
	High   float64   `yaml:"high" json:"high"`
	Low    float64   `yaml:"low" json:"low"`
	Close  float64   `yaml:"close" json:"close"`
	Volume float64   `yaml:"volume" json:"volume"`
}

// CandlesBetween returns the candles with start <= time <= end, assuming
// candles are sorted by time ascending.
func CandlesBetween(candles []Candle, start, end time.Time) []Candle {
	lo := 0
	for lo < len(candles) && candles[lo].Time.Before(start) {
		lo++
	}

	hi := len(candles)
	for hi > lo && candles[hi-1].Time.After(end) {
		hi--
	}

	return candles[lo:hi]
}

// Closes extracts the close price series from candles.
func Closes(candles []Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	return closes
}

// CandleTimes extracts the timestamps from candles.
func CandleTimes(candles []Candle) []time.Time {
	times := make([]time.Time, len(candles))
	for i, c := range candles {
		times[i] = c.Time
	}

	return times
}
