package frame

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/gesture.report/internal/vision/camera"
)

// Wire format for frame bundles published on the transport. All integers and
// floats are little-endian.
//
// BUNDLE LAYOUT:
// ├── Magic (4 bytes)        - "GFB1"
// ├── Frame ID (16 bytes)    - UUID
// ├── Timestamp (8 bytes)    - Unix nanoseconds, int64
// ├── Sensor ID              - uint16 length + UTF-8 bytes
// ├── Intrinsics (40 bytes)  - fx, fy, cx, cy float64 + width, height uint32
// ├── Colour image           - width, height uint32 + uint32 length + encoded bytes
// └── Depth image            - width, height uint32 + width*height float32 samples
const (
	bundleMagic      = "GFB1"
	bundleHeaderSize = 4 + 16 + 8 // magic + uuid + timestamp
	maxImageBytes    = 64 << 20   // reject absurd payloads before allocating
)

// MarshalBinary encodes the bundle in the wire format above.
func (b *Bundle) MarshalBinary() ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if len(b.SensorID) > math.MaxUint16 {
		return nil, fmt.Errorf("sensor id too long: %d bytes", len(b.SensorID))
	}

	depth := b.Depth
	size := bundleHeaderSize +
		2 + len(b.SensorID) +
		4*8 + 2*4 +
		2*4 + 4 + len(b.Color) +
		2*4 + 4*len(depth.Samples)

	out := make([]byte, 0, size)
	out = append(out, bundleMagic...)
	id, _ := b.ID.MarshalBinary()
	out = append(out, id...)
	out = binary.LittleEndian.AppendUint64(out, uint64(b.Timestamp.UnixNano()))

	out = binary.LittleEndian.AppendUint16(out, uint16(len(b.SensorID)))
	out = append(out, b.SensorID...)

	in := b.Intrinsics
	for _, f := range []float64{in.Fx, in.Fy, in.Cx, in.Cy} {
		out = binary.LittleEndian.AppendUint64(out, math.Float64bits(f))
	}
	out = binary.LittleEndian.AppendUint32(out, uint32(in.Width))
	out = binary.LittleEndian.AppendUint32(out, uint32(in.Height))

	out = binary.LittleEndian.AppendUint32(out, uint32(b.ColorWidth))
	out = binary.LittleEndian.AppendUint32(out, uint32(b.ColorHeight))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(b.Color)))
	out = append(out, b.Color...)

	out = binary.LittleEndian.AppendUint32(out, uint32(depth.Width))
	out = binary.LittleEndian.AppendUint32(out, uint32(depth.Height))
	for _, s := range depth.Samples {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(s))
	}

	return out, nil
}

// UnmarshalBundle decodes a wire-format frame bundle.
func UnmarshalBundle(data []byte) (*Bundle, error) {
	r := reader{buf: data}

	magic, err := r.bytes(4)
	if err != nil {
		return nil, fmt.Errorf("bundle header: %w", err)
	}
	if string(magic) != bundleMagic {
		return nil, fmt.Errorf("bad bundle magic %q", magic)
	}

	idBytes, err := r.bytes(16)
	if err != nil {
		return nil, fmt.Errorf("frame id: %w", err)
	}
	id, err := uuid.FromBytes(idBytes)
	if err != nil {
		return nil, fmt.Errorf("frame id: %w", err)
	}

	tsNanos, err := r.uint64()
	if err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}

	sensorLen, err := r.uint16()
	if err != nil {
		return nil, fmt.Errorf("sensor id: %w", err)
	}
	sensorBytes, err := r.bytes(int(sensorLen))
	if err != nil {
		return nil, fmt.Errorf("sensor id: %w", err)
	}

	var k [4]float64
	for i := range k {
		bits, err := r.uint64()
		if err != nil {
			return nil, fmt.Errorf("intrinsics: %w", err)
		}
		k[i] = math.Float64frombits(bits)
	}
	inW, err := r.uint32()
	if err != nil {
		return nil, fmt.Errorf("intrinsics: %w", err)
	}
	inH, err := r.uint32()
	if err != nil {
		return nil, fmt.Errorf("intrinsics: %w", err)
	}

	colorW, err := r.uint32()
	if err != nil {
		return nil, fmt.Errorf("colour image: %w", err)
	}
	colorH, err := r.uint32()
	if err != nil {
		return nil, fmt.Errorf("colour image: %w", err)
	}
	colorLen, err := r.uint32()
	if err != nil {
		return nil, fmt.Errorf("colour image: %w", err)
	}
	if colorLen > maxImageBytes {
		return nil, fmt.Errorf("colour payload too large: %d bytes", colorLen)
	}
	colorBytes, err := r.bytes(int(colorLen))
	if err != nil {
		return nil, fmt.Errorf("colour image: %w", err)
	}

	depthW, err := r.uint32()
	if err != nil {
		return nil, fmt.Errorf("depth image: %w", err)
	}
	depthH, err := r.uint32()
	if err != nil {
		return nil, fmt.Errorf("depth image: %w", err)
	}
	n := int(depthW) * int(depthH)
	if n <= 0 || 4*n > maxImageBytes {
		return nil, fmt.Errorf("depth dimensions out of range: %dx%d", depthW, depthH)
	}
	samples := make([]float32, n)
	for i := range samples {
		bits, err := r.uint32()
		if err != nil {
			return nil, fmt.Errorf("depth samples: %w", err)
		}
		samples[i] = math.Float32frombits(bits)
	}

	depth, err := NewDepthImage(int(depthW), int(depthH), samples)
	if err != nil {
		return nil, err
	}

	b := &Bundle{
		ID:          id,
		SensorID:    string(sensorBytes),
		Timestamp:   time.Unix(0, int64(tsNanos)),
		Color:       append([]byte(nil), colorBytes...),
		ColorWidth:  int(colorW),
		ColorHeight: int(colorH),
		Depth:       depth,
		Intrinsics: camera.Intrinsics{
			Fx: k[0], Fy: k[1], Cx: k[2], Cy: k[3],
			Width: int(inW), Height: int(inH),
		},
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// reader is a bounds-checked cursor over a byte slice.
type reader struct {
	buf []byte
	off int
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.buf) {
		return nil, fmt.Errorf("truncated at offset %d (want %d bytes, have %d)", r.off, n, len(r.buf)-r.off)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) uint16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) uint64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}
