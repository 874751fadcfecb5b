package model

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// resnetArch fixes block counts and widths per stage.
type resnetArch struct {
	blocks [4]int
	planes [4]int
}

var resnet18Arch = resnetArch{
	blocks: [4]int{2, 2, 2, 2},
	planes: [4]int{64, 128, 256, 512},
}

type basicBlock struct {
	conv1    *conv2D
	bn1      *batchNorm
	conv2    *conv2D
	bn2      *batchNorm
	downConv *conv2D
	downBN   *batchNorm
}

func (b *basicBlock) forward(x tensor) tensor {
	out := b.conv1.forward(x)
	b.bn1.forward(out)
	relu(out)
	out = b.conv2.forward(out)
	b.bn2.forward(out)

	identity := x
	if b.downConv != nil {
		identity = b.downConv.forward(x)
		b.downBN.forward(identity)
	}
	for i, v := range identity.data {
		out.data[i] += v
	}
	relu(out)
	return out
}

// ResNet is a single-channel ResNet with BasicBlocks, inference only.
// Parameter names follow the PyTorch state_dict layout (conv1.weight,
// layer2.0.downsample.1.running_var, fc.bias, ...).
type ResNet struct {
	inH, inW   int
	numClasses int

	params map[string]*param
	names  []string

	conv1  *conv2D
	bn1    *batchNorm
	layers [4][]*basicBlock
	fc     *linear
}

// NewResNet18 builds a ResNet-18 for grayscale input with a numClasses head.
// Weights start at PyTorch's batch-norm defaults and zero elsewhere; call
// LoadStateDict before use.
func NewResNet18(numClasses, inH, inW int) *ResNet {
	return newResNet(resnet18Arch, numClasses, inH, inW)
}

func newResNet(arch resnetArch, numClasses, inH, inW int) *ResNet {
	r := &ResNet{
		inH:        inH,
		inW:        inW,
		numClasses: numClasses,
		params:     make(map[string]*param),
	}
	r.conv1 = r.newConv("conv1", 1, arch.planes[0], 7, 2, 3)
	r.bn1 = r.newBN("bn1", arch.planes[0])

	inplanes := arch.planes[0]
	for stage := 0; stage < 4; stage++ {
		planes := arch.planes[stage]
		for i := 0; i < arch.blocks[stage]; i++ {
			stride := 1
			if stage > 0 && i == 0 {
				stride = 2
			}
			prefix := fmt.Sprintf("layer%d.%d", stage+1, i)
			blk := &basicBlock{
				conv1: r.newConv(prefix+".conv1", inplanes, planes, 3, stride, 1),
				bn1:   r.newBN(prefix+".bn1", planes),
				conv2: r.newConv(prefix+".conv2", planes, planes, 3, 1, 1),
				bn2:   r.newBN(prefix+".bn2", planes),
			}
			if stride != 1 || inplanes != planes {
				blk.downConv = r.newConv(prefix+".downsample.0", inplanes, planes, 1, stride, 0)
				blk.downBN = r.newBN(prefix+".downsample.1", planes)
			}
			r.layers[stage] = append(r.layers[stage], blk)
			inplanes = planes
		}
	}

	r.fc = &linear{
		weight: r.register("fc.weight", newParam([]int{numClasses, inplanes}, 0)),
		bias:   r.register("fc.bias", newParam([]int{numClasses}, 0)),
		out:    numClasses,
		in:     inplanes,
	}
	return r
}

func (r *ResNet) register(name string, p *param) *param {
	r.params[name] = p
	r.names = append(r.names, name)
	return p
}

func (r *ResNet) newConv(name string, in, out, k, stride, pad int) *conv2D {
	return &conv2D{
		weight: r.register(name+".weight", newParam([]int{out, in, k, k}, 0)),
		out:    out,
		in:     in,
		k:      k,
		stride: stride,
		pad:    pad,
	}
}

func (r *ResNet) newBN(name string, ch int) *batchNorm {
	return &batchNorm{
		weight:   r.register(name+".weight", newParam([]int{ch}, 1)),
		bias:     r.register(name+".bias", newParam([]int{ch}, 0)),
		mean:     r.register(name+".running_mean", newParam([]int{ch}, 0)),
		variance: r.register(name+".running_var", newParam([]int{ch}, 1)),
	}
}

// ParamShapes returns the expected state_dict shapes keyed by name.
func (r *ResNet) ParamShapes() map[string][]int {
	out := make(map[string][]int, len(r.params))
	for name, p := range r.params {
		out[name] = append([]int(nil), p.shape...)
	}
	return out
}

// LoadStateDict copies checkpoint tensors into the network. Loading is
// strict: every parameter must be present with the same shape and no
// unknown parameters may appear. num_batches_tracked counters are ignored.
func (r *ResNet) LoadStateDict(tensors map[string]rawTensor) error {
	tensors = stripPrefixes(tensors)

	var errs []error
	var unexpected []string
	for name := range tensors {
		if strings.HasSuffix(name, "num_batches_tracked") {
			continue
		}
		if _, ok := r.params[name]; !ok {
			unexpected = append(unexpected, name)
		}
	}
	var missing []string
	for _, name := range r.names {
		t, ok := tensors[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		p := r.params[name]
		if !slices.Equal(t.shape, p.shape) {
			errs = append(errs, fmt.Errorf("%w for %s: checkpoint %v, model %v", ErrShapeMismatch, name, t.shape, p.shape))
			continue
		}
		if t.data == nil {
			errs = append(errs, fmt.Errorf("model: %s has non-float dtype %s", name, t.dtype))
			continue
		}
		copy(p.data, t.data)
	}
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("model: missing keys %v", missing))
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		errs = append(errs, fmt.Errorf("model: unexpected keys %v", unexpected))
	}
	return errors.Join(errs...)
}

// stripPrefixes removes the wrappers a checkpoint export may leave in front
// of parameter names.
func stripPrefixes(tensors map[string]rawTensor) map[string]rawTensor {
	out := make(map[string]rawTensor, len(tensors))
	for name, t := range tensors {
		name = strings.TrimPrefix(name, "model_state_dict.")
		name = strings.TrimPrefix(name, "module.")
		out[name] = t
	}
	return out
}

// Forward runs each input through the network.
func (r *ResNet) Forward(inputs [][]float32) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		if len(in) != r.inH*r.inW {
			return nil, fmt.Errorf("%w: input %d has %d values, want 1x%dx%d", ErrShapeMismatch, i, len(in), r.inH, r.inW)
		}
		out[i] = r.forwardOne(in)
	}
	return out, nil
}

func (r *ResNet) forwardOne(in []float32) []float32 {
	x := tensor{c: 1, h: r.inH, w: r.inW, data: in}
	x = r.conv1.forward(x)
	r.bn1.forward(x)
	relu(x)
	x = maxPool2D(x, 3, 2, 1)
	for _, stage := range r.layers {
		for _, blk := range stage {
			x = blk.forward(x)
		}
	}
	return r.fc.forward(globalAvgPool(x))
}

func (r *ResNet) NumClasses() int { return r.numClasses }

func (r *ResNet) Device() string { return "cpu" }

func (r *ResNet) Close() error { return nil }
