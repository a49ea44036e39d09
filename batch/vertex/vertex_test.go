package vertex

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gogpu/gputypes"
)

func checkLayout(t *testing.T, name string, l *gputypes.VertexBufferLayout) {
	t.Helper()
	var end uint64
	for i, a := range l.Attributes {
		if a.Offset != end {
			t.Errorf("%s attribute %d offset = %d, want %d", name, i, a.Offset, end)
		}
		if a.ShaderLocation != uint32(i) {
			t.Errorf("%s attribute %d location = %d", name, i, a.ShaderLocation)
		}
		end += a.Format.Size()
	}
	if end != l.ArrayStride {
		t.Errorf("%s stride = %d, attributes cover %d bytes", name, l.ArrayStride, end)
	}
	if l.StepMode != gputypes.VertexStepModeVertex {
		t.Errorf("%s step mode = %v, want Vertex", name, l.StepMode)
	}
}

func TestLayouts(t *testing.T) {
	checkLayout(t, "Vertex2D", Vertex2D{}.Layout())
	checkLayout(t, "UncoloredVertex2D", UncoloredVertex2D{}.Layout())
	checkLayout(t, "TexturedVertex2D", TexturedVertex2D{}.Layout())

	if (Vertex2D{}).Layout() != (Vertex2D{}).Layout() {
		t.Error("Layout() should return the shared static table")
	}
}

func readFloats(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name   string
		encode func([]byte)
		stride int
		want   []float32
	}{
		{
			name:   "Vertex2D",
			encode: Vertex2D{Position: [2]float32{1, 2}, Color: [4]float32{0.1, 0.2, 0.3, 1}}.Encode,
			stride: Stride[Vertex2D](),
			want:   []float32{1, 2, 0.1, 0.2, 0.3, 1},
		},
		{
			name:   "UncoloredVertex2D",
			encode: UncoloredVertex2D{Position: [2]float32{-3, 4.5}}.Encode,
			stride: Stride[UncoloredVertex2D](),
			want:   []float32{-3, 4.5},
		},
		{
			name: "TexturedVertex2D",
			encode: TexturedVertex2D{
				Position:        [2]float32{1, 2},
				TexturePosition: [2]float32{0.5, 0.25},
				TextureRect:     [4]float32{0, 0, 1, 1},
				BlendRange:      [2]float32{2, 2},
				Color:           [4]float32{1, 1, 1, 0.5},
			}.Encode,
			stride: Stride[TexturedVertex2D](),
			want:   []float32{1, 2, 0.5, 0.25, 0, 0, 1, 1, 2, 2, 1, 1, 1, 0.5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, tt.stride)
			tt.encode(buf)
			got := readFloats(buf)
			if len(got) != len(tt.want) {
				t.Fatalf("encoded %d floats, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("float %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
