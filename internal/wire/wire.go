// Package wire encodes frames and control messages in the protobuf wire
// format described by proto/boids.proto, without generated code.
package wire

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/lao-tseu-is-alive/go-boids-canvas/pkg/flock"
)

// ErrMalformed is returned for input that is not a valid message.
var ErrMalformed = errors.New("malformed message")

// Field numbers, see proto/boids.proto.
const (
	frameTick   protowire.Number = 1
	frameWidth  protowire.Number = 2
	frameHeight protowire.Number = 3
	frameBoids  protowire.Number = 4

	boidX       protowire.Number = 1
	boidY       protowire.Number = 2
	boidHeading protowire.Number = 3
	boidColor   protowire.Number = 4
	boidScale   protowire.Number = 5
	boidSize    protowire.Number = 6

	controlWidth      protowire.Number = 1
	controlHeight     protowire.Number = 2
	controlPopulation protowire.Number = 3
)

// Frame is one published tick. Boid coordinates travel as float32.
type Frame struct {
	Tick   uint64
	Domain flock.Domain
	Boids  []flock.BoidView
}

// Control is a client request.
type Control struct {
	Domain        flock.Domain // Zero leaves the domain unchanged
	Population    int64
	HasPopulation bool
}

// AppendFrame appends the encoding of f to b.
func AppendFrame(b []byte, f *Frame) []byte {
	if f.Tick != 0 {
		b = protowire.AppendTag(b, frameTick, protowire.VarintType)
		b = protowire.AppendVarint(b, f.Tick)
	}
	b = appendDouble(b, frameWidth, f.Domain.Width)
	b = appendDouble(b, frameHeight, f.Domain.Height)

	var boid []byte
	for _, v := range f.Boids {
		boid = appendBoid(boid[:0], v)
		b = protowire.AppendTag(b, frameBoids, protowire.BytesType)
		b = protowire.AppendBytes(b, boid)
	}
	return b
}

func appendBoid(b []byte, v flock.BoidView) []byte {
	b = appendFloat(b, boidX, v.Position.X)
	b = appendFloat(b, boidY, v.Position.Y)
	b = appendFloat(b, boidHeading, v.Heading)
	if v.Color != 0 {
		b = protowire.AppendTag(b, boidColor, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v.Color))
	}
	b = appendFloat(b, boidScale, v.Scale)
	b = appendFloat(b, boidSize, v.Size)
	return b
}

// DecodeFrame parses a Frame. Unknown fields are skipped.
func DecodeFrame(b []byte) (*Frame, error) {
	f := &Frame{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == frameTick && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			f.Tick = v
			return n, nil
		case num == frameWidth && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			f.Domain.Width = math.Float64frombits(v)
			return n, nil
		case num == frameHeight && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			f.Domain.Height = math.Float64frombits(v)
			return n, nil
		case num == frameBoids && typ == protowire.BytesType:
			msg, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			v, err := decodeBoid(msg)
			if err != nil {
				return 0, fmt.Errorf("boid %d: %w", len(f.Boids), err)
			}
			f.Boids = append(f.Boids, v)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	if err != nil {
		return nil, fmt.Errorf("frame: %w", err)
	}
	return f, nil
}

func decodeBoid(b []byte) (flock.BoidView, error) {
	var v flock.BoidView
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ == protowire.Fixed32Type {
			bits, n := protowire.ConsumeFixed32(b)
			x := float64(math.Float32frombits(bits))
			switch num {
			case boidX:
				v.Position.X = x
			case boidY:
				v.Position.Y = x
			case boidHeading:
				v.Heading = x
			case boidScale:
				v.Scale = x
			case boidSize:
				v.Size = x
			}
			return n, nil
		}
		if num == boidColor && typ == protowire.VarintType {
			c, n := protowire.ConsumeVarint(b)
			if c > math.MaxUint8 {
				return 0, fmt.Errorf("%w: color %d", ErrMalformed, c)
			}
			v.Color = flock.Color(c)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	return v, err
}

// AppendControl appends the encoding of c to b.
func AppendControl(b []byte, c *Control) []byte {
	b = appendDouble(b, controlWidth, c.Domain.Width)
	b = appendDouble(b, controlHeight, c.Domain.Height)
	if c.HasPopulation {
		b = protowire.AppendTag(b, controlPopulation, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(c.Population))
	}
	return b
}

// DecodeControl parses a Control. Unknown fields are skipped.
func DecodeControl(b []byte) (*Control, error) {
	c := &Control{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == controlWidth && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			c.Domain.Width = math.Float64frombits(v)
			return n, nil
		case num == controlHeight && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			c.Domain.Height = math.Float64frombits(v)
			return n, nil
		case num == controlPopulation && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			c.Population, c.HasPopulation = int64(v), true
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	if err != nil {
		return nil, fmt.Errorf("control: %w", err)
	}
	return c, nil
}

// walk calls field for every field of a message. field consumes the value
// at the start of b and returns its length, negative for a parse error.
func walk(b []byte, field func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]
		n, err := field(num, typ, b)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return nil
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendFloat(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(float32(v)))
}
