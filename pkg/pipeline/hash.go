package pipeline

import (
	"cmp"
	"encoding/binary"
	"encoding/json"
	"math"
	"slices"
	"strings"

	"github.com/matzehuels/causalhub/pkg/cache"
	"github.com/matzehuels/causalhub/pkg/dataset"
)

// DatasetHash returns a content hash of d: its kind, labels, states and
// values. Datasets built from the same table hash equally whatever the
// column order of the source file.
func DatasetHash(d dataset.Dataset) string {
	var buf []byte
	str := func(s string) {
		buf = binary.AppendUvarint(buf, uint64(len(s)))
		buf = append(buf, s...)
	}
	switch d := d.(type) {
	case *dataset.Categorical:
		str("categorical")
		for i, l := range d.Labels() {
			str(l)
			for _, s := range d.States(i) {
				str(s)
			}
			buf = append(buf, d.Column(i)...)
		}
	case *dataset.Continuous:
		str("continuous")
		for i, l := range d.Labels() {
			str(l)
			for _, v := range d.Column(i) {
				buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
			}
		}
	}
	buf = binary.AppendUvarint(buf, uint64(d.Rows()))
	return cache.Hash(buf)
}

// priorHash is empty when there is no prior knowledge. Edge order does not
// matter.
func priorHash(forbidden, required [][2]string) string {
	if len(forbidden) == 0 && len(required) == 0 {
		return ""
	}
	norm := func(in [][2]string) [][2]string {
		out := slices.Clone(in)
		slices.SortFunc(out, func(a, b [2]string) int {
			return cmp.Or(strings.Compare(a[0], b[0]), strings.Compare(a[1], b[1]))
		})
		return slices.Compact(out)
	}
	data, _ := json.Marshal([2][][2]string{norm(forbidden), norm(required)})
	return cache.Hash(data)
}
