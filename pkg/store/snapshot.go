package store

import (
	"bytes"

	"github.com/ajitpratap0/nebula-ml/pkg/compression"
	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
	"github.com/ajitpratap0/nebula-ml/pkg/json"
	"github.com/ajitpratap0/nebula-ml/pkg/metrics"
	"github.com/ajitpratap0/nebula-ml/pkg/model"
)

const (
	headerSize    = 8
	formatVersion = 1
)

var magic = []byte("NBML")

// Encode serialises and compresses a model snapshot
func Encode(m *model.Model, codec compression.Algorithm, level compression.Level) ([]byte, error) {
	if !level.Valid() {
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig,
			"compression level must be between %d and %d, got %d",
			compression.MinLevel, compression.MaxLevel, int(level))
	}
	id, err := codec.ID()
	if err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig, "invalid snapshot codec")
	}
	comp, err := compression.For(codec, level)
	if err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig, "invalid snapshot codec")
	}

	snap, err := m.Snapshot()
	if err != nil {
		return nil, err
	}
	buf, err := json.MarshalToBuffer(snap)
	if err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeInternal, "cannot encode model "+m.Name)
	}
	defer json.PutBuffer(buf)

	body, err := comp.Compress(buf.Bytes())
	if err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeInternal, "cannot compress model "+m.Name)
	}

	out := make([]byte, headerSize, headerSize+len(body))
	copy(out, magic)
	out[4] = formatVersion
	out[5] = id
	out[6] = byte(level)
	out = append(out, body...)

	metrics.SnapshotBytes.WithLabelValues(metrics.DirectionSave).Observe(float64(len(out)))
	return out, nil
}

// Decode reverses Encode
func Decode(data []byte) (*model.Model, error) {
	if len(data) < headerSize || !bytes.Equal(data[:4], magic) {
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeInternal, "not a model snapshot")
	}
	if data[4] != formatVersion {
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeInternal,
			"unsupported snapshot format version %d", data[4])
	}
	comp, err := compression.ForID(data[5], compression.Level(data[6]))
	if err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeInternal, "unknown snapshot codec")
	}
	body, err := comp.Decompress(data[headerSize:])
	if err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeInternal, "cannot decompress snapshot")
	}

	var snap model.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeInternal, "cannot decode snapshot")
	}
	metrics.SnapshotBytes.WithLabelValues(metrics.DirectionLoad).Observe(float64(len(data)))
	return model.FromSnapshot(&snap)
}
