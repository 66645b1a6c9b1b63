package domain

import "math"

type FeatureName string

const (
	FeatureAvgBrightness FeatureName = "avgBrightness"
	FeatureAvgContrast   FeatureName = "avgContrast"
	FeatureMotionLevel   FeatureName = "motionLevel"
	FeatureColorVariance FeatureName = "colorVariance"
	FeatureTextCoverage  FeatureName = "textCoverage"
	FeatureHookStrength  FeatureName = "hookStrength"
	FeatureContentLength FeatureName = "contentLength"
	FeatureDuration      FeatureName = "duration"
	FeatureToneScore     FeatureName = "toneScore"
)

// FeatureNames lists every scored feature in a stable order. Loops over
// features use this order so float sums are reproducible.
var FeatureNames = []FeatureName{
	FeatureAvgBrightness,
	FeatureAvgContrast,
	FeatureMotionLevel,
	FeatureColorVariance,
	FeatureTextCoverage,
	FeatureHookStrength,
	FeatureContentLength,
	FeatureDuration,
	FeatureToneScore,
}

// FeatureCeilings holds the raw value at which each feature saturates.
var FeatureCeilings = map[FeatureName]float64{
	FeatureAvgBrightness: 100,
	FeatureAvgContrast:   100,
	FeatureMotionLevel:   100,
	FeatureColorVariance: 100,
	FeatureTextCoverage:  100,
	FeatureHookStrength:  1,
	FeatureContentLength: 500,
	FeatureDuration:      30,
	FeatureToneScore:     100,
}

func IsKnownFeature(name FeatureName) bool {
	_, ok := FeatureCeilings[name]
	return ok
}

// FeatureVector describes one content item. Raw vectors carry values on the
// feature's native scale; normalized vectors carry values in [0,1].
type FeatureVector struct {
	AvgBrightness float64 `json:"avgBrightness"`
	AvgContrast   float64 `json:"avgContrast"`
	MotionLevel   float64 `json:"motionLevel"`
	ColorVariance float64 `json:"colorVariance"`
	TextCoverage  float64 `json:"textCoverage"`
	HookStrength  float64 `json:"hookStrength"`
	ContentLength float64 `json:"contentLength"`
	Duration      float64 `json:"duration"`
	ToneScore     float64 `json:"toneScore"`
}

// FeatureVectorFromMap builds a vector from a loosely typed source. Missing,
// unknown or non-finite entries default to zero.
func FeatureVectorFromMap(raw map[string]float64) FeatureVector {
	var fv FeatureVector
	for key, value := range raw {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			continue
		}
		fv.Set(FeatureName(key), value)
	}
	return fv
}

func (f FeatureVector) Get(name FeatureName) float64 {
	switch name {
	case FeatureAvgBrightness:
		return f.AvgBrightness
	case FeatureAvgContrast:
		return f.AvgContrast
	case FeatureMotionLevel:
		return f.MotionLevel
	case FeatureColorVariance:
		return f.ColorVariance
	case FeatureTextCoverage:
		return f.TextCoverage
	case FeatureHookStrength:
		return f.HookStrength
	case FeatureContentLength:
		return f.ContentLength
	case FeatureDuration:
		return f.Duration
	case FeatureToneScore:
		return f.ToneScore
	default:
		return 0
	}
}

// Set assigns a feature value. Unknown names are ignored.
func (f *FeatureVector) Set(name FeatureName, value float64) {
	switch name {
	case FeatureAvgBrightness:
		f.AvgBrightness = value
	case FeatureAvgContrast:
		f.AvgContrast = value
	case FeatureMotionLevel:
		f.MotionLevel = value
	case FeatureColorVariance:
		f.ColorVariance = value
	case FeatureTextCoverage:
		f.TextCoverage = value
	case FeatureHookStrength:
		f.HookStrength = value
	case FeatureContentLength:
		f.ContentLength = value
	case FeatureDuration:
		f.Duration = value
	case FeatureToneScore:
		f.ToneScore = value
	}
}

func (f FeatureVector) ToMap() map[string]float64 {
	out := make(map[string]float64, len(FeatureNames))
	for _, name := range FeatureNames {
		out[string(name)] = f.Get(name)
	}
	return out
}
