package svm

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/statlab/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Kernel names a kernel family.
type Kernel string

const (
	Linear     Kernel = "linear"
	Polynomial Kernel = "polynomial"
	Gaussian   Kernel = "gaussian"
)

// rank orders kernels from simplest to most flexible.
func (k Kernel) rank() int {
	switch k {
	case Linear:
		return 0
	case Polynomial:
		return 1
	case Gaussian:
		return 2
	default:
		return 3
	}
}

// Polynomial kernel (Scale·⟨x,z⟩ + Offset)^Degree constants.
const (
	PolyScale  = 1.0
	PolyOffset = 1.0
)

// Params is one point of an SVM grid.
//
// Degree is only used by the polynomial kernel and Bandwidth only by the
// gaussian kernel exp(-Bandwidth·‖x−z‖²).
type Params struct {
	Kernel    Kernel  `yaml:"kernel"`
	Cost      float64 `yaml:"cost"`
	Degree    int     `yaml:"degree,omitempty"`
	Bandwidth float64 `yaml:"bandwidth,omitempty"`
}

func (p Params) String() string {
	switch p.Kernel {
	case Polynomial:
		return fmt.Sprintf("%s C=%g degree=%d", p.Kernel, p.Cost, p.Degree)
	case Gaussian:
		return fmt.Sprintf("%s C=%g bandwidth=%g", p.Kernel, p.Cost, p.Bandwidth)
	default:
		return fmt.Sprintf("%s C=%g", p.Kernel, p.Cost)
	}
}

// Validate checks the options recognised for each kernel.
func (p Params) Validate() error {
	if !(p.Cost > 0) || math.IsInf(p.Cost, 0) {
		return errors.NewValidationError("cost", "must be a positive real", p.Cost)
	}
	switch p.Kernel {
	case Linear:
	case Polynomial:
		if p.Degree < 1 {
			return errors.NewValidationError("degree", "must be a positive integer", p.Degree)
		}
	case Gaussian:
		if !(p.Bandwidth > 0) || math.IsInf(p.Bandwidth, 0) {
			return errors.NewValidationError("bandwidth", "must be a positive real", p.Bandwidth)
		}
	default:
		return errors.NewValidationError("kernel", "must be linear, polynomial or gaussian", string(p.Kernel))
	}
	return nil
}

// Simpler reports whether a is the simpler configuration: smaller cost, then
// kernel order linear < polynomial < gaussian, then smaller degree, then
// smaller bandwidth.
func Simpler(a, b Params) bool {
	if a.Cost != b.Cost {
		return a.Cost < b.Cost
	}
	if a.Kernel.rank() != b.Kernel.rank() {
		return a.Kernel.rank() < b.Kernel.rank()
	}
	if a.Degree != b.Degree {
		return a.Degree < b.Degree
	}
	return a.Bandwidth < b.Bandwidth
}

// Grid enumerates kernel × cost × (degree | bandwidth) combinations in that
// order. Degrees apply to the polynomial kernel and bandwidths to the
// gaussian kernel only.
func Grid(kernels []Kernel, costs []float64, degrees []int, bandwidths []float64) []Params {
	var grid []Params
	for _, k := range kernels {
		for _, c := range costs {
			switch k {
			case Polynomial:
				for _, d := range degrees {
					grid = append(grid, Params{Kernel: k, Cost: c, Degree: d})
				}
			case Gaussian:
				for _, b := range bandwidths {
					grid = append(grid, Params{Kernel: k, Cost: c, Bandwidth: b})
				}
			default:
				grid = append(grid, Params{Kernel: k, Cost: c})
			}
		}
	}
	return grid
}

// KernelFunc evaluates a kernel on two rows.
type KernelFunc func(x, z []float64) float64

// NewKernelFunc returns the kernel described by p.
func NewKernelFunc(p Params) (KernelFunc, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	switch p.Kernel {
	case Polynomial:
		degree := float64(p.Degree)
		return func(x, z []float64) float64 {
			return math.Pow(PolyScale*floats.Dot(x, z)+PolyOffset, degree)
		}, nil
	case Gaussian:
		sigma := p.Bandwidth
		return func(x, z []float64) float64 {
			d := floats.Distance(x, z, 2)
			return math.Exp(-sigma * d * d)
		}, nil
	default:
		return floats.Dot, nil
	}
}
