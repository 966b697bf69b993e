package calculator

import (
	"errors"
	"fmt"

	"MarketPulse/internal/model"
)

// DefaultPeriod is the conventional RSI lookback.
const DefaultPeriod = 14

// ErrInvalidPeriod is returned for a period below 1.
var ErrInvalidPeriod = errors.New("period must be positive")

// Zones returned by Classify.
const (
	ZoneOverbought = "overbought"
	ZoneOversold   = "oversold"
	ZoneNeutral    = "neutral"
	ZoneUndefined  = "undefined"
)

// ComputeRSI computes the RSI from simple averages of the first `period`
// price changes of the series. It needs period+1 samples; shorter series
// yield an undefined result.
//
// With no losses the result is 100, or 50 when there were no gains either.
func ComputeRSI(series model.PriceSeries, period int) (model.RSIResult, error) {
	if period <= 0 {
		return model.RSIResult{}, ErrInvalidPeriod
	}
	if len(series) < period+1 {
		return model.RSIResult{}, nil
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		diff := series[i].Close - series[i-1].Close
		if diff > 0 {
			gains += diff
		} else if diff < 0 {
			losses -= diff
		}
	}
	return fromAverages(gains/float64(period), losses/float64(period)), nil
}

// WilderRSI seeds the averages from the first `period` changes and applies
// Wilder smoothing over the rest of the series.
func WilderRSI(series model.PriceSeries, period int) (model.RSIResult, error) {
	if period <= 0 {
		return model.RSIResult{}, ErrInvalidPeriod
	}
	if len(series) < period+1 {
		return model.RSIResult{}, nil
	}

	closes := series.Closes()

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	return fromAverages(avgGain, avgLoss), nil
}

func fromAverages(avgGain, avgLoss float64) model.RSIResult {
	if avgLoss == 0 {
		if avgGain == 0 {
			return model.RSIResult{Value: 50, Defined: true}
		}
		return model.RSIResult{Value: 100, Defined: true}
	}
	rs := avgGain / avgLoss
	return model.RSIResult{Value: 100 - 100/(1+rs), Defined: true}
}

// Tail returns the last n samples of the series, or the whole series when
// it is shorter.
func Tail(series model.PriceSeries, n int) model.PriceSeries {
	if n <= 0 || len(series) <= n {
		return series
	}
	return series[len(series)-n:]
}

// Classify maps an RSI result onto a zone using inclusive thresholds.
func Classify(r model.RSIResult, overbought, oversold float64) string {
	switch {
	case !r.Defined:
		return ZoneUndefined
	case r.Value >= overbought:
		return ZoneOverbought
	case r.Value <= oversold:
		return ZoneOversold
	default:
		return ZoneNeutral
	}
}

// Method names accepted by ForMethod.
const (
	MethodSimple = "simple"
	MethodWilder = "wilder"
)

// RSIFunc computes an RSI result from a series and a period.
type RSIFunc func(series model.PriceSeries, period int) (model.RSIResult, error)

// ForMethod returns the RSI implementation for a method name.
// An empty name selects the simple average.
func ForMethod(method string) (RSIFunc, error) {
	switch method {
	case "", MethodSimple:
		return ComputeRSI, nil
	case MethodWilder:
		return WilderRSI, nil
	default:
		return nil, fmt.Errorf("unknown rsi method %q", method)
	}
}

// MaxKlines is the largest kline page the exchange serves.
const MaxKlines = 1000

// DefaultLimit is how many closes to fetch when no limit is configured.
// The simple average needs exactly period+1; Wilder smoothing gets ten
// periods of history (at least 100 closes) to converge.
func DefaultLimit(method string, period int) int {
	if method != MethodWilder {
		return period + 1
	}
	return min(max(10*period, 100), MaxKlines)
}
