package model

import (
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

const bnEps = 1e-5

// tensor is a single-sample feature map laid out as [c][h][w].
type tensor struct {
	c, h, w int
	data    []float32
}

func newTensor(c, h, w int) tensor {
	return tensor{c: c, h: h, w: w, data: make([]float32, c*h*w)}
}

// param is a named network parameter or buffer.
type param struct {
	shape []int
	data  []float32
}

func newParam(shape []int, fill float32) *param {
	n := 1
	for _, d := range shape {
		n *= d
	}
	data := make([]float32, n)
	if fill != 0 {
		for i := range data {
			data[i] = fill
		}
	}
	return &param{shape: shape, data: data}
}

// conv2D is a bias-free square convolution with weight [out][in][k][k].
type conv2D struct {
	weight  *param
	out, in int
	k       int
	stride  int
	pad     int
}

// forward lowers the convolution to a single GEMM over an im2col buffer.
func (c *conv2D) forward(x tensor) tensor {
	outH := (x.h+2*c.pad-c.k)/c.stride + 1
	outW := (x.w+2*c.pad-c.k)/c.stride + 1
	outHW := outH * outW
	rows := c.in * c.k * c.k

	cols := make([]float32, rows*outHW)
	for ch := 0; ch < c.in; ch++ {
		plane := x.data[ch*x.h*x.w : (ch+1)*x.h*x.w]
		for ky := 0; ky < c.k; ky++ {
			for kx := 0; kx < c.k; kx++ {
				row := cols[((ch*c.k+ky)*c.k+kx)*outHW:]
				for oy := 0; oy < outH; oy++ {
					iy := oy*c.stride - c.pad + ky
					if iy < 0 || iy >= x.h {
						continue
					}
					src := plane[iy*x.w:]
					dst := row[oy*outW:]
					for ox := 0; ox < outW; ox++ {
						ix := ox*c.stride - c.pad + kx
						if ix < 0 || ix >= x.w {
							continue
						}
						dst[ox] = src[ix]
					}
				}
			}
		}
	}

	y := newTensor(c.out, outH, outW)
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
		blas32.General{Rows: c.out, Cols: rows, Stride: rows, Data: c.weight.data},
		blas32.General{Rows: rows, Cols: outHW, Stride: outHW, Data: cols},
		0,
		blas32.General{Rows: c.out, Cols: outHW, Stride: outHW, Data: y.data},
	)
	return y
}

// batchNorm applies frozen running statistics (evaluation mode).
type batchNorm struct {
	weight, bias, mean, variance *param
}

func (bn *batchNorm) forward(x tensor) {
	plane := x.h * x.w
	for ch := 0; ch < x.c; ch++ {
		scale := bn.weight.data[ch] / float32(math.Sqrt(float64(bn.variance.data[ch])+bnEps))
		shift := bn.bias.data[ch] - bn.mean.data[ch]*scale
		vals := x.data[ch*plane : (ch+1)*plane]
		for i, v := range vals {
			vals[i] = v*scale + shift
		}
	}
}

func relu(x tensor) {
	for i, v := range x.data {
		if v < 0 {
			x.data[i] = 0
		}
	}
}

// maxPool2D pads with -inf, matching nn.MaxPool2d.
func maxPool2D(x tensor, k, stride, pad int) tensor {
	outH := (x.h+2*pad-k)/stride + 1
	outW := (x.w+2*pad-k)/stride + 1
	y := newTensor(x.c, outH, outW)
	for ch := 0; ch < x.c; ch++ {
		plane := x.data[ch*x.h*x.w:]
		dst := y.data[ch*outH*outW:]
		for oy := 0; oy < outH; oy++ {
			for ox := 0; ox < outW; ox++ {
				best := float32(math.Inf(-1))
				for ky := 0; ky < k; ky++ {
					iy := oy*stride - pad + ky
					if iy < 0 || iy >= x.h {
						continue
					}
					for kx := 0; kx < k; kx++ {
						ix := ox*stride - pad + kx
						if ix < 0 || ix >= x.w {
							continue
						}
						if v := plane[iy*x.w+ix]; v > best {
							best = v
						}
					}
				}
				dst[oy*outW+ox] = best
			}
		}
	}
	return y
}

// globalAvgPool is AdaptiveAvgPool2d((1, 1)) followed by flatten.
func globalAvgPool(x tensor) []float32 {
	out := make([]float32, x.c)
	plane := x.h * x.w
	for ch := 0; ch < x.c; ch++ {
		sum := 0.0
		for _, v := range x.data[ch*plane : (ch+1)*plane] {
			sum += float64(v)
		}
		out[ch] = float32(sum / float64(plane))
	}
	return out
}

// linear computes weight·x + bias with weight [out][in].
type linear struct {
	weight, bias *param
	out, in      int
}

func (l *linear) forward(x []float32) []float32 {
	y := append([]float32(nil), l.bias.data...)
	blas32.Gemv(blas.NoTrans, 1,
		blas32.General{Rows: l.out, Cols: l.in, Stride: l.in, Data: l.weight.data},
		blas32.Vector{N: l.in, Inc: 1, Data: x},
		1,
		blas32.Vector{N: l.out, Inc: 1, Data: y},
	)
	return y
}
