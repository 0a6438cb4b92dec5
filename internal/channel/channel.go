// Package channel maps 1 MHz channel indices onto fine-channel index ranges.
//
// The bandpass table interleaves the two polarizations sample by sample, so a
// 1 MHz channel covers 2*width samples there, while the visibility flag column
// holds width fine channels per 1 MHz channel with polarization on its own
// axis. The two mappings are deliberately separate functions.
package channel

// Width is the number of fine channels per 1 MHz channel.
const Width = 54

// Interleave is the number of polarization samples per fine channel in the
// bandpass frequency axis.
const Interleave = 2

// Range is a half-open strided index range [Start, Stop) with step Step.
type Range struct {
	Start int
	Stop  int
	Step  int
}

// Indices returns every index covered by the range.
func (r Range) Indices() []int {
	if r.Step <= 0 || r.Stop <= r.Start {
		return nil
	}

	out := make([]int, 0, (r.Stop-r.Start+r.Step-1)/r.Step)
	for i := r.Start; i < r.Stop; i += r.Step {
		out = append(out, i)
	}

	return out
}

// Len returns the number of indices covered by the range.
func (r Range) Len() int {
	if r.Step <= 0 || r.Stop <= r.Start {
		return 0
	}

	return (r.Stop - r.Start + r.Step - 1) / r.Step
}

// BandpassRange returns the bandpass frequency-axis samples of 1 MHz channel i
// that receive the XY-phase correction: every second sample starting at
// offset 1 of the channel's 2*width block, i.e. [i*2w+1, (i+1)*2w) step 2.
func BandpassRange(i, width int) Range {
	block := Interleave * width

	return Range{
		Start: i*block + 1,
		Stop:  (i + 1) * block,
		Step:  Interleave,
	}
}

// FlagRange returns the contiguous fine channels [i*w, i*w+w) of 1 MHz
// channel i in a visibility flag column.
func FlagRange(i, width int) Range {
	return Range{
		Start: i * width,
		Stop:  i*width + width,
		Step:  1,
	}
}

// BandpassLength is the frequency-axis length a bandpass table must have.
func BandpassLength(channels, width int) int {
	return channels * width * Interleave
}

// FlagLength is the fine-channel axis length a flag column must have.
func FlagLength(channels, width int) int {
	return channels * width
}
