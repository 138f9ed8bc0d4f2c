//go:build js && wasm
// +build js,wasm

package main

import (
	"errors"
	"fmt"
	"sync"
	"syscall/js"

	"github.com/himanishpuri/tempoviz/pkg/tempoviz/spectrum"
	"github.com/himanishpuri/tempoviz/pkg/tempoviz/tempo"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorInsufficientData
	ErrorNoViableTempo
	ErrorInvalidSampleRate
	ErrorUnknownAnalyser
)

var (
	analysersMu sync.Mutex
	analysers   = map[int]*spectrum.Analyser{}
	nextID      = 1
)

// readSamples copies a JS Array or typed array of numbers. With channels == 2 the
// input is taken as interleaved stereo and only the first channel is kept.
func readSamples(v js.Value, channels int) ([]float64, error) {
	if v.Type() != js.TypeObject {
		return nil, errors.New("samples must be an Array or Float32Array")
	}
	length := v.Length()
	samples := make([]float64, 0, length/channels+1)
	for i := 0; i < length; i += channels {
		val := v.Index(i)
		if val.Type() != js.TypeNumber {
			return nil, fmt.Errorf("samples element %d is not a number", i)
		}
		samples = append(samples, val.Float())
	}
	return samples, nil
}

// estimateBPM(samples, sampleRate[, channels]) -> {error, bpm, threshold, peaks, floorReached}
// or {error, data: message}.
func estimateBPM(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected arguments: samples, sampleRate[, channels]")
	}
	if args[1].Type() != js.TypeNumber {
		return makeErrorResponse(ErrorInvalidArgs, "sampleRate must be a number")
	}
	channels := 1
	if len(args) > 2 && args[2].Type() == js.TypeNumber {
		channels = args[2].Int()
	}
	if channels < 1 || channels > 2 {
		return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Channels must be 1 (mono) or 2 (stereo), got: %d", channels))
	}

	samples, err := readSamples(args[0], channels)
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}

	res, err := tempo.Estimate(samples, args[1].Int(), tempo.DefaultParams())
	if err != nil {
		return makeErrorResponse(tempoErrorCode(err), err.Error())
	}

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("bpm", res.BPM)
	result.Set("threshold", res.Threshold)
	result.Set("peaks", len(res.Peaks))
	result.Set("floorReached", res.FloorReached)
	return result
}

func tempoErrorCode(err error) int {
	switch {
	case errors.Is(err, tempo.ErrInvalidSampleRate):
		return ErrorInvalidSampleRate
	case errors.Is(err, tempo.ErrNoViableTempo):
		return ErrorNoViableTempo
	case errors.Is(err, tempo.ErrInsufficientData):
		return ErrorInsufficientData
	default:
		return ErrorInvalidArgs
	}
}

// newAnalyser([fftSize[, smoothing]]) -> {error, id, binCount}
func newAnalyser(this js.Value, args []js.Value) any {
	cfg := spectrum.DefaultConfig()
	if len(args) > 0 && args[0].Type() == js.TypeNumber {
		cfg.FFTSize = args[0].Int()
	}
	if len(args) > 1 && args[1].Type() == js.TypeNumber {
		cfg.SmoothingTimeConstant = args[1].Float()
	}

	a, err := spectrum.NewAnalyser(cfg)
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}

	analysersMu.Lock()
	id := nextID
	nextID++
	analysers[id] = a
	analysersMu.Unlock()

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("id", id)
	result.Set("binCount", a.FrequencyBinCount())
	return result
}

func lookupAnalyser(args []js.Value) (*spectrum.Analyser, int, bool) {
	if len(args) < 1 || args[0].Type() != js.TypeNumber {
		return nil, 0, false
	}
	id := args[0].Int()
	analysersMu.Lock()
	defer analysersMu.Unlock()
	a, ok := analysers[id]
	return a, id, ok
}

// analyserProcess(id, samples) feeds one block of mono samples.
func analyserProcess(this js.Value, args []js.Value) any {
	a, id, ok := lookupAnalyser(args)
	if !ok {
		return makeErrorResponse(ErrorUnknownAnalyser, "unknown analyser id")
	}
	if len(args) < 2 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected arguments: id, samples")
	}
	samples, err := readSamples(args[1], 1)
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}
	a.Process(samples)

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("id", id)
	return result
}

// analyserBytes(id) -> {error, data: Uint8Array}
func analyserBytes(this js.Value, args []js.Value) any {
	a, _, ok := lookupAnalyser(args)
	if !ok {
		return makeErrorResponse(ErrorUnknownAnalyser, "unknown analyser id")
	}
	buf := make([]uint8, a.FrequencyBinCount())
	n := a.ByteFrequencyData(buf)

	arr := js.Global().Get("Uint8Array").New(n)
	js.CopyBytesToJS(arr, buf[:n])

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", arr)
	return result
}

// analyserFloats(id) -> {error, data: Float32Array} in dB
func analyserFloats(this js.Value, args []js.Value) any {
	a, _, ok := lookupAnalyser(args)
	if !ok {
		return makeErrorResponse(ErrorUnknownAnalyser, "unknown analyser id")
	}
	buf := make([]float64, a.FrequencyBinCount())
	n := a.FloatFrequencyData(buf)

	arr := js.Global().Get("Float32Array").New(n)
	for i := 0; i < n; i++ {
		arr.SetIndex(i, buf[i])
	}

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", arr)
	return result
}

// analyserFree(id) releases the analyser.
func analyserFree(this js.Value, args []js.Value) any {
	_, id, ok := lookupAnalyser(args)
	if ok {
		analysersMu.Lock()
		delete(analysers, id)
		analysersMu.Unlock()
	}
	return ok
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")
	logf := func(method, msg string) {
		if !console.IsUndefined() {
			console.Call(method, msg)
		}
	}
	logf("log", "TempoViz WASM module initializing...")

	done := make(chan struct{})

	funcs := map[string]func(js.Value, []js.Value) any{
		"estimateBPM":     estimateBPM,
		"newAnalyser":     newAnalyser,
		"analyserProcess": analyserProcess,
		"analyserBytes":   analyserBytes,
		"analyserFloats":  analyserFloats,
		"analyserFree":    analyserFree,
	}
	for name, fn := range funcs {
		js.Global().Set(name, js.FuncOf(fn))
	}

	window := js.Global().Get("window")
	if !window.IsUndefined() {
		eventInit := js.Global().Get("Object").New()
		event := js.Global().Get("CustomEvent").New("wasmReady", eventInit)
		window.Call("dispatchEvent", event)
	} else {
		logf("error", "window object is undefined")
	}

	logf("log", "TempoViz WASM module loaded and ready")
	<-done
}
