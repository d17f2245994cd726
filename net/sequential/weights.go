package sequential

import "compress/lzw"
import "encoding/json"
import "io"
import "os"

import "github.com/pkg/errors"

import "github.com/songww/juice/blob"

type weightRecord struct {
	Layer string    `json:"layer"`
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// WriteCompressedWeightsToFile writes the model weights to a lzw file.
func (n *Network) WriteCompressedWeightsToFile(name string) error {
	file, err := os.Create(name)
	if err != nil {
		return errors.Wrapf(err, "creating weights file %s", name)
	}
	err = n.WriteCompressedWeights(file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}

// WriteCompressedWeights writes the model weights to a writer as an
// lzw-compressed JSON array, one record per owned param blob.
func (n *Network) WriteCompressedWeights(w io.Writer) error {
	lw := lzw.NewWriter(w, lzw.LSB, 8)
	records := make([]weightRecord, 0, len(n.params))
	for i, p := range n.params {
		rec := weightRecord{Layer: n.paramOwners[i]}
		p.WithRead(func(b *blob.Blob) {
			rec.Shape = append(rec.Shape, b.Shape()...)
			rec.Data = append(rec.Data, b.Data()...)
		})
		records = append(records, rec)
	}
	if err := json.NewEncoder(lw).Encode(records); err != nil {
		return errors.Wrap(err, "encoding weights")
	}
	return lw.Close()
}

// ReadCompressedWeightsFromFile reads the model weights from a lzw file.
func (n *Network) ReadCompressedWeightsFromFile(name string) error {
	file, err := os.Open(name)
	if err != nil {
		return errors.Wrapf(err, "opening weights file %s", name)
	}
	err = n.ReadCompressedWeights(file)
	file.Close()
	return err
}

// ReadCompressedWeights reads model weights written by
// WriteCompressedWeights into the network params, in order.
func (n *Network) ReadCompressedWeights(r io.Reader) error {
	lr := lzw.NewReader(r, lzw.LSB, 8)
	defer lr.Close()
	var records []weightRecord
	if err := json.NewDecoder(lr).Decode(&records); err != nil {
		return errors.Wrap(err, "decoding weights")
	}
	if len(records) != len(n.params) {
		return errors.Errorf("weights hold %d params, network has %d", len(records), len(n.params))
	}
	for i, rec := range records {
		var err error
		n.params[i].With(func(b *blob.Blob) {
			if len(rec.Data) != b.Count() {
				err = errors.Errorf("param %d of layer %q: weights hold %d values, blob is %s",
					i, rec.Layer, len(rec.Data), b.ShapeString())
				return
			}
			copy(b.Data(), rec.Data)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
