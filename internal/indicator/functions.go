package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-research/internal/types"
	"github.com/rxtech-lab/argo-research/pkg/errors"
)

// Builtin indicator functions. Each returns a Func whose Compute transform is
// pure over the candle slice it is given; outputs are aligned to the input
// candle timestamps with NaN in warm-up positions, so frames of different
// indicators over the same pair line up index by index.

// SMA returns a simple moving average function.
// Accepted parameters: length (required), offset (optional, shifts output forward).
func SMA() Func {
	return Func{
		Params: []string{"length", "offset"},
		Compute: func(candles []types.Candle, params Parameters) (types.Frame, error) {
			length, err := requiredIntParam(params, "length")
			if err != nil {
				return types.Frame{}, err
			}

			offset, err := optionalIntParam(params, "offset", 0)
			if err != nil {
				return types.Frame{}, err
			}

			if err := checkLength(candles, length); err != nil {
				return types.Frame{}, err
			}

			closes := types.Closes(candles)
			values := nanSlice(len(closes))

			sum := 0.0

			for i, c := range closes {
				sum += c
				if i >= length {
					sum -= closes[i-length]
				}

				if i >= length-1 {
					values[i] = sum / float64(length)
				}
			}

			return types.NewSeries(types.CandleTimes(candles), shift(values, offset))
		},
	}
}

// EMA returns an exponential moving average function seeded with the SMA of
// the first length values. Alpha is 2/(length+1).
// Accepted parameters: length (required).
func EMA() Func {
	return Func{
		Params: []string{"length"},
		Compute: func(candles []types.Candle, params Parameters) (types.Frame, error) {
			length, err := requiredIntParam(params, "length")
			if err != nil {
				return types.Frame{}, err
			}

			if err := checkLength(candles, length); err != nil {
				return types.Frame{}, err
			}

			closes := types.Closes(candles)
			values := nanSlice(len(closes))

			sma := 0.0
			for i := 0; i < length; i++ {
				sma += closes[i]
			}

			sma /= float64(length)
			values[length-1] = sma

			alpha := 2.0 / float64(length+1)
			prev := sma

			for i := length; i < len(closes); i++ {
				prev = closes[i]*alpha + prev*(1-alpha)
				values[i] = prev
			}

			return types.NewSeries(types.CandleTimes(candles), values)
		},
	}
}

// RSI returns a relative strength index function using Wilder smoothing.
// Accepted parameters: length (required).
func RSI() Func {
	return Func{
		Params: []string{"length"},
		Compute: func(candles []types.Candle, params Parameters) (types.Frame, error) {
			length, err := requiredIntParam(params, "length")
			if err != nil {
				return types.Frame{}, err
			}

			if err := checkLength(candles, length+1); err != nil {
				return types.Frame{}, err
			}

			closes := types.Closes(candles)
			values := nanSlice(len(closes))

			var avgGain, avgLoss float64

			for i := 1; i <= length; i++ {
				change := closes[i] - closes[i-1]
				if change > 0 {
					avgGain += change
				} else {
					avgLoss -= change
				}
			}

			avgGain /= float64(length)
			avgLoss /= float64(length)
			values[length] = rsiValue(avgGain, avgLoss)

			for i := length + 1; i < len(closes); i++ {
				change := closes[i] - closes[i-1]

				gain, loss := 0.0, 0.0
				if change > 0 {
					gain = change
				} else {
					loss = -change
				}

				avgGain = (avgGain*float64(length-1) + gain) / float64(length)
				avgLoss = (avgLoss*float64(length-1) + loss) / float64(length)
				values[i] = rsiValue(avgGain, avgLoss)
			}

			return types.NewSeries(types.CandleTimes(candles), values)
		},
	}
}

// BollingerBands returns a Bollinger Bands function producing a three column
// table: "bbl" (lower band), "bbm" (middle SMA) and "bbu" (upper band).
// Accepted parameters: length (required), stddev (optional, default 2).
func BollingerBands() Func {
	return Func{
		Params: []string{"length", "stddev"},
		Compute: func(candles []types.Candle, params Parameters) (types.Frame, error) {
			length, err := requiredIntParam(params, "length")
			if err != nil {
				return types.Frame{}, err
			}

			multiplier, err := optionalFloatParam(params, "stddev", 2)
			if err != nil {
				return types.Frame{}, err
			}

			if err := checkLength(candles, length); err != nil {
				return types.Frame{}, err
			}

			closes := types.Closes(candles)
			lower := nanSlice(len(closes))
			middle := nanSlice(len(closes))
			upper := nanSlice(len(closes))

			for i := length - 1; i < len(closes); i++ {
				window := closes[i-length+1 : i+1]

				mean := 0.0
				for _, c := range window {
					mean += c
				}

				mean /= float64(length)

				variance := 0.0
				for _, c := range window {
					variance += (c - mean) * (c - mean)
				}

				stddev := math.Sqrt(variance / float64(length))

				middle[i] = mean
				lower[i] = mean - multiplier*stddev
				upper[i] = mean + multiplier*stddev
			}

			return types.NewTable(
				types.CandleTimes(candles),
				[]string{"bbl", "bbm", "bbu"},
				[][]float64{lower, middle, upper},
			)
		},
	}
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss

	return 100 - 100/(1+rs)
}

func checkLength(candles []types.Candle, required int) error {
	if required <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "length must be positive, got %d", required)
	}

	if len(candles) < required {
		return errors.NewInsufficientDataErrorf(required, len(candles), "",
			"indicator requires %d candles, got %d", required, len(candles))
	}

	return nil
}

func nanSlice(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = math.NaN()
	}

	return values
}

// shift moves values forward by offset positions, filling the head with NaN.
func shift(values []float64, offset int) []float64 {
	if offset <= 0 {
		return values
	}

	shifted := nanSlice(len(values))
	for i := offset; i < len(values); i++ {
		shifted[i] = values[i-offset]
	}

	return shifted
}

func requiredIntParam(params Parameters, name string) (int, error) {
	value, ok := params.Get(name)
	if !ok {
		return 0, errors.Newf(errors.ErrCodeMissingParameter, "required parameter %s not set", name)
	}

	return coerceInt(name, value)
}

func optionalIntParam(params Parameters, name string, fallback int) (int, error) {
	value, ok := params.Get(name)
	if !ok {
		return fallback, nil
	}

	return coerceInt(name, value)
}

func optionalFloatParam(params Parameters, name string, fallback float64) (float64, error) {
	value, ok := params.Get(name)
	if !ok {
		return fallback, nil
	}

	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidType, "parameter %s has type %T, expected float", name, value)
	}
}

func coerceInt(name string, value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}

		return 0, errors.Newf(errors.ErrCodeInvalidType, "parameter %s has fractional value %f", name, v)
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidType, "parameter %s has type %T, expected int", name, value)
	}
}
