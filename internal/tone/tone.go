// Package tone turns cells into short notes for audible sequence playback.
//
// Cell ids walk up the chromatic scale from C3, so the 36 cells of the
// largest board span three octaves and no two cells sound alike. A wrong
// selection plays a low buzz.
package tone

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const (
	SampleRate = beep.SampleRate(44100)

	baseFreq = 130.81 // C3

	NoteDuration  = 350 * time.Millisecond
	ErrorDuration = 400 * time.Millisecond
	ramp          = 15 * time.Millisecond
)

// Frequency returns the note of cell id in Hz.
func Frequency(id int) float64 {
	if id < 0 {
		id = 0
	}
	return baseFreq * math.Pow(2, float64(id)/12)
}

// fade applies a linear attack and release so notes do not click.
type fade struct {
	s        beep.Streamer
	pos, len int
	edge     int
}

func (f *fade) Stream(samples [][2]float64) (int, bool) {
	n, ok := f.s.Stream(samples)
	for i := 0; i < n; i++ {
		g := 1.0
		if f.pos < f.edge {
			g = float64(f.pos) / float64(f.edge)
		} else if rem := f.len - f.pos; rem < f.edge {
			g = float64(rem) / float64(f.edge)
		}
		samples[i][0] *= g
		samples[i][1] *= g
		f.pos++
	}
	return n, ok
}

func (f *fade) Err() error { return f.s.Err() }

// volume scales s by a linear gain; 0 silences it.
func volume(s beep.Streamer, gain float64) beep.Streamer {
	if gain <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(gain)}
}

// shaped is a faded sine of length d. Frequencies at or above Nyquist are
// clamped just below it.
func shaped(freq float64, d time.Duration, rate beep.SampleRate) beep.Streamer {
	if nyq := float64(rate)/2 - 1; freq > nyq {
		freq = nyq
	}
	sine, err := generators.SineTone(rate, freq)
	if err != nil {
		sine = generators.Silence(-1)
	}
	n := rate.N(d)
	return &fade{s: beep.Take(n, sine), len: n, edge: rate.N(ramp)}
}

// Cell is the note of cell id.
func Cell(id int, rate beep.SampleRate) beep.Streamer {
	return volume(shaped(Frequency(id), NoteDuration, rate), 0.4)
}

// Error is the wrong-selection buzz: a fifth-apart low dyad.
func Error(rate beep.SampleRate) beep.Streamer {
	m := &beep.Mixer{}
	m.Add(shaped(110, ErrorDuration, rate), shaped(164.81, ErrorDuration, rate))
	// the mixer never ends on its own
	return volume(beep.Take(rate.N(ErrorDuration), m), 0.25)
}

// Player plays notes through the system speaker.
type Player struct {
	mu    sync.Mutex
	mixer *beep.Mixer
	ready bool
}

// NewPlayer returns a player; nothing is audible until Init succeeds.
func NewPlayer() *Player { return &Player{mixer: &beep.Mixer{}} }

// Init opens the speaker.
func (p *Player) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready {
		return nil
	}
	if err := speaker.Init(SampleRate, SampleRate.N(50*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(p.mixer)
	p.ready = true
	return nil
}

// PlayCell queues the note of cell id.
func (p *Player) PlayCell(id int) { p.play(Cell(id, SampleRate)) }

// PlayError queues the wrong-selection buzz.
func (p *Player) PlayError() { p.play(Error(SampleRate)) }

func (p *Player) play(s beep.Streamer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ready {
		return
	}
	speaker.Lock()
	p.mixer.Add(s)
	speaker.Unlock()
}

// Close stops playback and releases the speaker.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ready {
		return
	}
	speaker.Clear()
	speaker.Close()
	p.ready = false
}
