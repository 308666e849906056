package neuralnet

// scratchStage tracks how far a scratch buffer has progressed through one
// training pass.
type scratchStage int

const (
	stageEmpty scratchStage = iota
	stageForward
	stageNodeValues
	stageAccumulated
)

// LayerScratch holds the per-example buffers that bridge a layer's forward and
// backward passes. One scratch belongs to exactly one (example slot, layer) pair.
type LayerScratch struct {
	Inputs       []float64 // inputSize
	WeightedSums []float64 // outputSize
	Activations  []float64 // outputSize
	NodeValues   []float64 // outputSize

	stage scratchStage
}

// NewLayerScratch allocates buffers sized for l.
func NewLayerScratch(l *Layer) *LayerScratch {
	return &LayerScratch{
		Inputs:       make([]float64, l.inputSize),
		WeightedSums: make([]float64, l.outputSize),
		Activations:  make([]float64, l.outputSize),
		NodeValues:   make([]float64, l.outputSize),
	}
}

func (s *LayerScratch) fits(l *Layer) bool {
	return len(s.Inputs) == l.inputSize && len(s.WeightedSums) == l.outputSize &&
		len(s.Activations) == l.outputSize && len(s.NodeValues) == l.outputSize
}

// exampleScratch is the scratch of every layer for one example slot.
type exampleScratch []*LayerScratch

func newExampleScratch(layers []*Layer) exampleScratch {
	es := make(exampleScratch, len(layers))
	for i, l := range layers {
		es[i] = NewLayerScratch(l)
	}
	return es
}
