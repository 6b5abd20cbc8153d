package spectrum

import (
	"context"
	"math"
	"testing"

	"audioviz/internal/compute"
	"audioviz/pkg/utils"
)

func newTestPipeline(t *testing.T, fftSize int) *Pipeline {
	t.Helper()
	p, err := NewPipeline(fftSize, compute.NewWorkerPool(4))
	if err != nil {
		t.Fatalf("NewPipeline(%d): %v", fftSize, err)
	}
	return p
}

func TestNewPipelineRejectsBadSizes(t *testing.T) {
	t.Parallel()
	device := compute.NewSerial()

	for _, size := range []int{0, 1, 3, 100, 1000} {
		if _, err := NewPipeline(size, device); err == nil {
			t.Errorf("NewPipeline(%d) succeeded, want error", size)
		}
	}
	for _, size := range []int{2, 256, 1024, 8192} {
		if _, err := NewPipeline(size, device); err != nil {
			t.Errorf("NewPipeline(%d) = %v, want nil", size, err)
		}
	}
}

func TestTransformRoundTrip(t *testing.T) {
	t.Parallel()
	const n = 256
	p := newTestPipeline(t, n)
	ctx := context.Background()

	orig := make([]complex64, n)
	data := make([]complex64, n)
	for i := range orig {
		orig[i] = complex(float32(math.Sin(float64(i)*0.1)), float32(math.Cos(float64(i)*0.37)))
	}
	copy(data, orig)

	if err := p.Transform(ctx, data, Forward); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if err := p.Transform(ctx, data, Inverse); err != nil {
		t.Fatalf("inverse: %v", err)
	}

	for i := range data {
		if math.Abs(float64(real(data[i])-real(orig[i]))) > 1e-4 ||
			math.Abs(float64(imag(data[i])-imag(orig[i]))) > 1e-4 {
			t.Fatalf("round trip mismatch at %d: got %v, want %v", i, data[i], orig[i])
		}
	}
}

func TestTransformImpulseIsFlat(t *testing.T) {
	t.Parallel()
	const n = 8
	p := newTestPipeline(t, n)

	data := make([]complex64, n)
	data[0] = 1
	if err := p.Transform(context.Background(), data, Forward); err != nil {
		t.Fatalf("Transform: %v", err)
	}

	for i, v := range data {
		if math.Abs(float64(real(v))-1) > 1e-6 || math.Abs(float64(imag(v))) > 1e-6 {
			t.Errorf("bin %d = %v, want (1+0i)", i, v)
		}
	}
}

func TestAnalyzeSinePeakBin(t *testing.T) {
	t.Parallel()
	const n = 1024
	const sampleRate = 48000
	p := newTestPipeline(t, n)

	// Bin-aligned frequency so leakage stays in the neighboring bins.
	const targetBin = 64
	freq := float64(targetBin) * sampleRate / n
	samples := utils.Sine(freq, sampleRate, n)

	spec := make([]float32, n/2)
	if err := p.Analyze(context.Background(), samples, spec); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if peak := utils.FindPeakBin(spec); peak != targetBin {
		t.Errorf("peak at bin %d, want %d", peak, targetBin)
	}
}

func TestTransformSineMirrorPeaks(t *testing.T) {
	t.Parallel()
	const n = 256
	const targetBin = 20
	p := newTestPipeline(t, n)

	data := make([]complex64, n)
	for i := range data {
		data[i] = complex(float32(math.Sin(2*math.Pi*targetBin*float64(i)/n)), 0)
	}
	if err := p.Transform(context.Background(), data, Forward); err != nil {
		t.Fatalf("Transform: %v", err)
	}

	mags := make([]float32, n)
	for i, v := range data {
		mags[i] = float32(math.Hypot(float64(real(v)), float64(imag(v))))
	}

	// A real sine concentrates energy at bin k and its mirror N-k.
	peak := mags[targetBin]
	mirror := mags[n-targetBin]
	if peak < float32(n)/4 {
		t.Errorf("bin %d magnitude %v, want ~N/2", targetBin, peak)
	}
	if math.Abs(float64(mirror-peak)) > 1e-2*float64(peak) {
		t.Errorf("mirror bin %d = %v, want ~%v", n-targetBin, mirror, peak)
	}
	for i, m := range mags {
		if i == targetBin || i == n-targetBin {
			continue
		}
		if m > peak*1e-3 {
			t.Errorf("bin %d = %v, want near zero", i, m)
		}
	}
}

func TestAnalyzeMatchesFallback(t *testing.T) {
	t.Parallel()
	const n = 512
	const sampleRate = 44100
	samples := utils.Sine(997, sampleRate, n)

	p := newTestPipeline(t, n)
	device := make([]float32, n/2)
	if err := p.Analyze(context.Background(), samples, device); err != nil {
		t.Fatalf("device analyze: %v", err)
	}

	seq := make([]float32, n/2)
	newSequentialFFT(n).analyze(samples, hannWindow(n), seq, false)

	for i := range device {
		if math.Abs(float64(device[i]-seq[i])) > 1e-3 {
			t.Fatalf("bin %d: device %v, fallback %v", i, device[i], seq[i])
		}
	}
}

func TestAnalyzeBandsNormalized(t *testing.T) {
	t.Parallel()
	const n = 2048
	const sampleRate = 48000
	p := newTestPipeline(t, n)

	samples := utils.Sine(440, sampleRate, n)
	bands, err := p.AnalyzeBands(context.Background(), samples, sampleRate, 32)
	if err != nil {
		t.Fatalf("AnalyzeBands: %v", err)
	}
	if len(bands) != 32 {
		t.Fatalf("got %d bands, want 32", len(bands))
	}

	var maxBand float32
	for _, b := range bands {
		if b < 0 || b > 1 {
			t.Fatalf("band value %v outside [0,1]", b)
		}
		if b > maxBand {
			maxBand = b
		}
	}
	if math.Abs(float64(maxBand)-1) > 1e-6 {
		t.Errorf("max band = %v, want 1", maxBand)
	}
}

func TestAnalyzeBandsSilence(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(t, 1024)

	bands, err := p.AnalyzeBands(context.Background(), make([]float32, 1024), 48000, 16)
	if err != nil {
		t.Fatalf("AnalyzeBands: %v", err)
	}
	for i, b := range bands {
		if b != 0 {
			t.Errorf("band %d = %v for silence, want 0", i, b)
		}
	}
}

func TestAnalyzeBandsRejectsBadCounts(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(t, 1024)
	samples := make([]float32, 1024)

	for _, count := range []int{0, -1, MaxBands + 1} {
		if _, err := p.AnalyzeBands(context.Background(), samples, 48000, count); err == nil {
			t.Errorf("AnalyzeBands with %d bands succeeded, want error", count)
		}
	}
}

func TestPipelineFailsOverOnDeviceLoss(t *testing.T) {
	t.Parallel()
	const n = 1024
	const sampleRate = 48000
	device := compute.NewWorkerPool(4)
	p, err := NewPipeline(n, device)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	ctx := context.Background()
	samples := utils.Sine(1000, sampleRate, n)
	before, err := p.AnalyzeBands(ctx, samples, sampleRate, 24)
	if err != nil {
		t.Fatalf("analyze before loss: %v", err)
	}
	if p.Degraded() {
		t.Fatal("pipeline degraded before device loss")
	}

	if err := device.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	after, err := p.AnalyzeBands(ctx, samples, sampleRate, 24)
	if err != nil {
		t.Fatalf("analyze after loss: %v", err)
	}
	if !p.Degraded() {
		t.Error("pipeline should report degraded after device loss")
	}

	for i := range before {
		if math.Abs(float64(before[i]-after[i])) > 1e-3 {
			t.Fatalf("band %d: before %v, after %v", i, before[i], after[i])
		}
	}
}

func TestAnalyzeInsufficientSamples(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(t, 1024)

	err := p.Analyze(context.Background(), make([]float32, 512), make([]float32, 512))
	if err == nil {
		t.Error("Analyze with short input succeeded, want error")
	}
}

func BenchmarkAnalyzeBands(b *testing.B) {
	const n = 4096
	const sampleRate = 48000
	p, err := NewPipeline(n, compute.NewWorkerPool(0))
	if err != nil {
		b.Fatalf("NewPipeline: %v", err)
	}
	samples := utils.Sine(440, sampleRate, n)
	ctx := context.Background()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := p.AnalyzeBands(ctx, samples, sampleRate, 64); err != nil {
			b.Fatal(err)
		}
	}
}
