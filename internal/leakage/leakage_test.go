package leakage

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleParset = `# leakage solutions
gain.g11.0.0 = [1.02, 0.01]
leakage.d12.0.0 = [0.1, 0.0]
leakage.d21.0.0 = [0.1,0.0]
leakage.d12.1.0 = [-0.035, 0.0812]
leakage.d21.1.0 = [ -1.5e-2 , -4.25E-2 ]
leakage.d12.10.0 = [0.3, 0.3]
leakage.d12.2.0 = [7, -3]
leakage.d12.2.0 = [0.07, -0.03]
leakage.d21.3.0 = [not, numbers]
leakage.d12.4.0 = [0.1]
`

func TestParseBytes_Directives(t *testing.T) {
	t.Parallel()

	pairs := ParseBytes([]byte(sampleParset))

	tests := []struct {
		name    string
		antenna int
		d12     Solution
		d21     Solution
	}{
		{name: "plain", antenna: 0, d12: Found(complex(0.1, 0)), d21: Found(complex(0.1, 0))},
		{name: "signed_fractional_exponent", antenna: 1,
			d12: Found(complex(-0.035, 0.0812)), d21: Found(complex(-1.5e-2, -4.25e-2))},
		{name: "last_line_wins", antenna: 2, d12: Found(complex(0.07, -0.03))},
		{name: "malformed_is_missing", antenna: 3},
		{name: "wrong_arity_is_missing", antenna: 4},
		{name: "absent_antenna", antenna: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := pairs[tt.antenna]
			assert.Equal(t, tt.d12, got.D12)
			assert.Equal(t, tt.d21, got.D21)
		})
	}
}

func TestParseBytes_AntennaMatchIsExact(t *testing.T) {
	t.Parallel()

	pairs := ParseBytes([]byte("leakage.d12.10.0 = [0.3, 0.3]\n"))

	assert.True(t, pairs[1].Empty())
	assert.Equal(t, Found(complex(0.3, 0.3)), pairs[10].D12)
}

func TestParseBytes_IgnoresOtherLines(t *testing.T) {
	t.Parallel()

	pairs := ParseBytes([]byte("leakage.d12.0.1 = [0.5, 0.5]\nfoo = bar\n\nleakage.d33.0.0 = [1, 1]\n"))

	assert.Empty(t, pairs)
}

func TestSolution_Amplitude(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.5, Found(complex(0.3, 0.4)).Amplitude(), 1e-12)
	assert.True(t, math.IsNaN(Solution{}.Amplitude()))
	assert.True(t, Solution{}.Missing())
}

func TestPair_Get(t *testing.T) {
	t.Parallel()

	p := Pair{D12: Found(1), D21: Found(2)}

	assert.Equal(t, p.D12, p.Get(D12))
	assert.Equal(t, p.D21, p.Get(D21))
	assert.Equal(t, "d12", D12.String())
	assert.Equal(t, "d21", D21.String())
}

func TestFileName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "parset_leakages.b00_c0", FileName(0, 0))
	assert.Equal(t, "parset_leakages.b07_c191", FileName(7, 191))
	assert.Equal(t, "parset_leakages.b35_c12", FileName(35, 12))
	assert.Equal(t, "b03/c4/a0", Key{Beam: 3, Channel: 4}.String())
}

func TestParseBytes_LongLineBeforeDirective(t *testing.T) {
	t.Parallel()

	data := "# " + strings.Repeat("x", 70*1024) + "\nleakage.d12.0.0 = [0.1, 0.2]\r\n"

	pairs := ParseBytes([]byte(data))

	assert.Equal(t, Found(complex(0.1, 0.2)), pairs[0].D12)
}

func TestParseBytes_MalformedAfterGoodKeepsGood(t *testing.T) {
	t.Parallel()

	data := "leakage.d12.5.0 = [0.04, 0.01]\nleakage.d12.5.0 = [0.9, oops]\nleakage.d21.5.0 = [0.02]\n"

	pairs := ParseBytes([]byte(data))

	assert.Equal(t, Found(complex(0.04, 0.01)), pairs[5].D12)
	assert.True(t, pairs[5].D21.Missing())
}
