package convert

import (
	"math"

	"github.com/born-ml/torch2ncnn/internal/tensor"
)

// BilinearKernelSize returns the deconvolution kernel size for an
// upsampling factor: 2*factor - factor%2.
func BilinearKernelSize(factor int) int {
	return 2*factor - factor%2
}

// BilinearPad returns ceil((factor-1)/2).
func BilinearPad(factor int) int {
	return int(math.Ceil(float64(factor-1) / 2))
}

// BilinearKernel returns the k x k bilinear interpolation kernel
// (1 - |x-c|/f) * (1 - |y-c|/f) with f = ceil(k/2) and c the kernel centre.
// For k = 2*factor - factor%2 the taps that land on one output position
// sum to 1 along each axis, so interior pixels are fully covered.
func BilinearKernel(k int) *tensor.Blob {
	f := (k + 1) / 2
	center := float64(f) - 0.5
	if k%2 == 1 {
		center = float64(f - 1)
	}

	data := make([]float32, k*k)
	for x := 0; x < k; x++ {
		wx := 1 - math.Abs(float64(x)-center)/float64(f)
		for y := 0; y < k; y++ {
			wy := 1 - math.Abs(float64(y)-center)/float64(f)
			data[x*k+y] = float32(wx * wy)
		}
	}
	return tensor.MustNew(tensor.Shape{k, k}, data)
}

// FillBilinear returns a (ch, 1, k, k) blob with the bilinear kernel
// repeated for every channel.
func FillBilinear(ch, k int) *tensor.Blob {
	kernel := BilinearKernel(k).Data()
	data := make([]float32, 0, ch*len(kernel))
	for i := 0; i < ch; i++ {
		data = append(data, kernel...)
	}
	return tensor.MustNew(tensor.Shape{ch, 1, k, k}, data)
}
