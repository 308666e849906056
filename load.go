package main

import (
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"backprop/neuralnet"
)

const (
	imageMagic = 2051
	labelMagic = 2049
	NumClasses = 10

	// largest payload an IDX header may announce
	maxIDXBytes = math.MaxInt32
)

// loadImages reads an IDX image file into an N × (rows*cols) Float64 tensor with
// pixels scaled to [0, 1]. It also returns the image dimensions.
func loadImages(filePath string) (tensor.Tensor, int, int, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, 0, 0, err
	}
	defer file.Close()
	return decodeImages(file)
}

func decodeImages(r io.Reader) (tensor.Tensor, int, int, error) {
	var header [4]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, 0, 0, errors.Wrap(err, "reading image header")
	}
	if header[0] != imageMagic {
		return nil, 0, 0, errors.Errorf("invalid image magic number: got %d, want %d", header[0], imageMagic)
	}
	if header[1] == 0 || header[2] == 0 || header[3] == 0 {
		return nil, 0, 0, errors.Errorf("empty image file: %d images of %dx%d", header[1], header[2], header[3])
	}
	// uint64 products of two uint32 values cannot overflow
	pixels := uint64(header[2]) * uint64(header[3])
	if pixels > maxIDXBytes || uint64(header[1]) > maxIDXBytes/pixels {
		return nil, 0, 0, errors.Errorf("image header announces %d images of %dx%d, more than %d bytes",
			header[1], header[2], header[3], maxIDXBytes)
	}
	count, rows, cols := int(header[1]), int(header[2]), int(header[3])
	size := rows * cols

	raw := make([]byte, count*size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, 0, 0, errors.Wrapf(err, "reading %d images", count)
	}
	norm := make([]float64, len(raw))
	for i, px := range raw {
		norm[i] = float64(px) / 255.0
	}
	t := tensor.New(tensor.Of(tensor.Float64), tensor.WithShape(count, size), tensor.WithBacking(norm))
	return t, rows, cols, nil
}

// loadLabels reads an IDX label file.
func loadLabels(filePath string) ([]int, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return decodeLabels(file)
}

func decodeLabels(r io.Reader) ([]int, error) {
	var header [2]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrap(err, "reading label header")
	}
	if header[0] != labelMagic {
		return nil, errors.Errorf("invalid label magic number: got %d, want %d", header[0], labelMagic)
	}
	if header[1] > maxIDXBytes {
		return nil, errors.Errorf("label header announces %d labels, more than %d", header[1], maxIDXBytes)
	}
	raw := make([]byte, header[1])
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, errors.Wrapf(err, "reading %d labels", header[1])
	}
	labels := make([]int, len(raw))
	for i, l := range raw {
		labels[i] = int(l)
	}
	return labels, nil
}

func oneHotEncode(labels []int, numClasses int) (tensor.Tensor, error) {
	numLabels := len(labels)
	norm := make([]float64, numLabels*numClasses)

	for i, label := range labels {
		row, err := neuralnet.CreateOneHot(label, numClasses)
		if err != nil {
			return nil, errors.Wrapf(err, "label %d", i)
		}
		copy(norm[i*numClasses:], row)
	}

	return tensor.New(tensor.Of(tensor.Float64), tensor.WithShape(numLabels, numClasses), tensor.WithBacking(norm)), nil
}

// toExamples pairs the rows of an image tensor with the rows of a one-hot tensor.
// Inputs and expected outputs share the tensors' backing arrays.
func toExamples(images, oneHot tensor.Tensor, labels []int) ([]neuralnet.TrainingExample, error) {
	imgShape, hotShape := images.Shape(), oneHot.Shape()
	if len(imgShape) != 2 || len(hotShape) != 2 || imgShape[0] != hotShape[0] || imgShape[0] != len(labels) {
		return nil, errors.Errorf("images %v, labels %v and %d label values do not line up", imgShape, hotShape, len(labels))
	}
	pixels, ok := images.Data().([]float64)
	if !ok {
		return nil, errors.Errorf("images hold %v, want float64", images.Dtype())
	}
	hot, ok := oneHot.Data().([]float64)
	if !ok {
		return nil, errors.Errorf("labels hold %v, want float64", oneHot.Dtype())
	}

	size, classes := imgShape[1], hotShape[1]
	examples := make([]neuralnet.TrainingExample, imgShape[0])
	for i := range examples {
		examples[i] = neuralnet.TrainingExample{
			Input:    pixels[i*size : (i+1)*size : (i+1)*size],
			Expected: hot[i*classes : (i+1)*classes : (i+1)*classes],
			Label:    labels[i],
		}
	}
	return examples, nil
}

func loadExamples(imagesPath, labelsPath string, limit int) ([]neuralnet.TrainingExample, tensor.Tensor, int, int, error) {
	images, rows, cols, err := loadImages(imagesPath)
	if err != nil {
		return nil, nil, 0, 0, errors.Wrapf(err, "loading %s", imagesPath)
	}
	labels, err := loadLabels(labelsPath)
	if err != nil {
		return nil, nil, 0, 0, errors.Wrapf(err, "loading %s", labelsPath)
	}
	if limit > 0 && limit < len(labels) {
		labels = labels[:limit]
		view, err := images.Slice(tensor.S(0, limit))
		if err != nil {
			return nil, nil, 0, 0, err
		}
		images = tensor.Materialize(view)
	}
	oneHot, err := oneHotEncode(labels, NumClasses)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	examples, err := toExamples(images, oneHot, labels)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	return examples, images, rows, cols, nil
}

// saveImg writes image i of images as a grayscale PNG.
func saveImg(images tensor.Tensor, rows, cols, i int, path string) error {
	img := image.NewGray(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v, err := images.At(i, y*cols+x)
			if err != nil {
				return err
			}
			img.Set(x, y, color.Gray{Y: uint8(v.(float64) * 255.0)})
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return errors.Wrapf(err, "encoding %s", path)
	}
	return nil
}
