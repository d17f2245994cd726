// Package mnist downloads, verifies and decodes the MNIST handwritten
// digit files.
package mnist

import "bytes"
import "compress/gzip"
import "encoding/binary"
import "os"
import "path/filepath"
import "runtime"

import "github.com/pkg/errors"

import "github.com/songww/juice/datasets"
import "github.com/songww/juice/parallel"

// ImgSize is the side of an original image.
const ImgSize = 28

// SmallImgSize is the side of a max-pool downscaled image.
const SmallImgSize = 13

const inferSetImg = "t10k-images-idx3-ubyte.gz"
const inferSetVal = "t10k-labels-idx1-ubyte.gz"
const trainSetImg = "train-images-idx3-ubyte.gz"
const trainSetVal = "train-labels-idx1-ubyte.gz"
const inferDigImg = "8d422c7b0a1c1c79245a5bcf07fe86e33eeafee792b84584aec276f5a2dbc4e6"
const inferDigVal = "f7ae60f92e00ec6debd23a6088c31dbd2371eca3ffa0defaefb259924204aec6"
const trainDigImg = "440fcabf73cc546fa21475e81ea370265605f56be210a4024d2ca8f203523609"
const trainDigVal = "3552534a0a558bbed6aed32b30c495cca23d567ec52cac8be1a0730e8010255c"

const imagesMagic = 0x00000803
const labelsMagic = 0x00000801

var files = map[string]string{
	inferSetImg: inferDigImg,
	inferSetVal: inferDigVal,
	trainSetImg: trainDigImg,
	trainSetVal: trainDigVal,
}

// Data holds the decoded train and test halves of MNIST.
type Data struct {
	TrainImages [][ImgSize * ImgSize]byte
	TrainSmall  [][SmallImgSize * SmallImgSize]byte
	TrainLabels []byte

	TestImages [][ImgSize * ImgSize]byte
	TestSmall  [][SmallImgSize * SmallImgSize]byte
	TestLabels []byte
}

// Load decodes the four MNIST files from dir. Files are digest checked;
// a mismatch is an error naming the file.
func Load(dir string) (*Data, error) {
	d := new(Data)
	for name := range files {
		path := filepath.Join(dir, name)
		if err := verifyFile(path, files[name]); err != nil {
			return nil, err
		}
		raw, err := gunzipFile(path)
		if err != nil {
			return nil, err
		}
		if err := d.decode(name, raw); err != nil {
			return nil, errors.Wrapf(err, "decoding %s", path)
		}
	}
	if len(d.TrainImages) != len(d.TrainLabels) {
		return nil, errors.Errorf("mnist: %d train images but %d labels", len(d.TrainImages), len(d.TrainLabels))
	}
	if len(d.TestImages) != len(d.TestLabels) {
		return nil, errors.Errorf("mnist: %d test images but %d labels", len(d.TestImages), len(d.TestLabels))
	}
	return d, nil
}

func gunzipFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "gunzipping %s", path)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(gz); err != nil {
		gz.Close()
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	if err := gz.Close(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return buf.Bytes(), nil
}

func (d *Data) decode(name string, raw []byte) error {
	isTrain := name == trainSetImg || name == trainSetVal
	isImages := name == trainSetImg || name == inferSetImg
	if isImages {
		images, small, err := decodeImages(raw)
		if err != nil {
			return err
		}
		if isTrain {
			d.TrainImages, d.TrainSmall = images, small
		} else {
			d.TestImages, d.TestSmall = images, small
		}
		return nil
	}
	labels, err := decodeLabels(raw)
	if err != nil {
		return err
	}
	if isTrain {
		d.TrainLabels = labels
	} else {
		d.TestLabels = labels
	}
	return nil
}

func decodeImages(raw []byte) (images [][ImgSize * ImgSize]byte, small [][SmallImgSize * SmallImgSize]byte, err error) {
	if len(raw) < 16 {
		return nil, nil, errors.New("images header truncated")
	}
	magic := binary.BigEndian.Uint32(raw)
	if magic != imagesMagic {
		return nil, nil, errors.Errorf("images magic %#x, want %#x", magic, imagesMagic)
	}
	count := int(binary.BigEndian.Uint32(raw[4:]))
	rows := int(binary.BigEndian.Uint32(raw[8:]))
	cols := int(binary.BigEndian.Uint32(raw[12:]))
	if rows != ImgSize || cols != ImgSize {
		return nil, nil, errors.Errorf("images are %dx%d, want %dx%d", rows, cols, ImgSize, ImgSize)
	}
	body := raw[16:]
	if len(body) != count*ImgSize*ImgSize {
		return nil, nil, errors.Errorf("images body holds %d bytes, header says %d images", len(body), count)
	}

	images = make([][ImgSize * ImgSize]byte, count)
	small = make([][SmallImgSize * SmallImgSize]byte, count)
	parallel.ForEach(count, runtime.NumCPU(), func(i int) {
		ptr := ImgSize * ImgSize * i
		copy(images[i][:], body[ptr:])
		downscale(body[ptr:ptr+ImgSize*ImgSize], &small[i])
	})
	return images, small, nil
}

// downscale shrinks 28x28 to 13x13 by taking the max of each 2x2 block,
// offset by one pixel to center the crop.
func downscale(img []byte, small *[SmallImgSize * SmallImgSize]byte) {
	const base = 1 + ImgSize
	for y := 0; y < SmallImgSize; y++ {
		for x := 0; x < SmallImgSize; x++ {
			off := base + 2*x + 2*y*ImgSize
			small[y*SmallImgSize+x] = max4(
				img[off],
				img[off+1],
				img[off+ImgSize],
				img[off+ImgSize+1],
			)
		}
	}
}

func max4(a, b, c, d byte) (o byte) {
	o = a
	if b > o {
		o = b
	}
	if c > o {
		o = c
	}
	if d > o {
		o = d
	}
	return o
}

func decodeLabels(raw []byte) ([]byte, error) {
	if len(raw) < 8 {
		return nil, errors.New("labels header truncated")
	}
	magic := binary.BigEndian.Uint32(raw)
	if magic != labelsMagic {
		return nil, errors.Errorf("labels magic %#x, want %#x", magic, labelsMagic)
	}
	count := int(binary.BigEndian.Uint32(raw[4:]))
	body := raw[8:]
	if len(body) != count {
		return nil, errors.Errorf("labels body holds %d bytes, header says %d", len(body), count)
	}
	return body, nil
}

// TrainSet converts the train half to solver samples scaled into [0, 1].
// With small set, the 13x13 downscaled images are used.
func (d *Data) TrainSet(small bool) datasets.Set {
	if small {
		return toSetSmall(d.TrainSmall, d.TrainLabels)
	}
	return toSet(d.TrainImages, d.TrainLabels)
}

// TestSet converts the test half to solver samples scaled into [0, 1].
func (d *Data) TestSet(small bool) datasets.Set {
	if small {
		return toSetSmall(d.TestSmall, d.TestLabels)
	}
	return toSet(d.TestImages, d.TestLabels)
}

func toSet(images [][ImgSize * ImgSize]byte, labels []byte) datasets.Set {
	set := make(datasets.Set, len(images))
	for i := range images {
		input := make([]float32, ImgSize*ImgSize)
		for j, px := range images[i] {
			input[j] = float32(px) / 255
		}
		set[i] = datasets.Sample{Input: input, Label: labels[i]}
	}
	return set
}

func toSetSmall(images [][SmallImgSize * SmallImgSize]byte, labels []byte) datasets.Set {
	set := make(datasets.Set, len(images))
	for i := range images {
		input := make([]float32, SmallImgSize*SmallImgSize)
		for j, px := range images[i] {
			input[j] = float32(px) / 255
		}
		set[i] = datasets.Sample{Input: input, Label: labels[i]}
	}
	return set
}
