package dsp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var noteOffsets = map[string]int{
	"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11,
}

// NoteToHz converts scientific pitch notation ("C2", "A4", "F#3", "Bb5")
// to a frequency using A4 = 440 Hz.
func NoteToHz(note string) (float64, error) {
	n := strings.TrimSpace(note)
	if len(n) < 2 {
		return 0, fmt.Errorf("dsp: invalid note %q", note)
	}
	base, ok := noteOffsets[strings.ToUpper(n[:1])]
	if !ok {
		return 0, fmt.Errorf("dsp: invalid note %q", note)
	}
	rest := n[1:]
	switch {
	case strings.HasPrefix(rest, "#"):
		base++
		rest = rest[1:]
	case strings.HasPrefix(rest, "b"):
		base--
		rest = rest[1:]
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("dsp: invalid octave in note %q", note)
	}
	midi := (octave+1)*12 + base
	return MIDIToHz(float64(midi)), nil
}

// MIDIToHz converts a (fractional) MIDI note number to Hz.
func MIDIToHz(m float64) float64 { return 440 * math.Pow(2, (m-69)/12) }

// HzToMIDI converts a frequency to a fractional MIDI note number.
func HzToMIDI(hz float64) float64 { return 69 + 12*math.Log2(hz/440.0) }

// MIDIToNoteName renders a MIDI note number, e.g. 57 -> "A3".
func MIDIToNoteName(m int) string {
	n := ((m % 12) + 12) % 12
	oct := m/12 - 1
	if m < 0 && m%12 != 0 {
		oct--
	}
	return fmt.Sprintf("%s%d", noteNames[n], oct)
}

func mustNote(note string) float64 {
	hz, err := NoteToHz(note)
	if err != nil {
		panic(err)
	}
	return hz
}
