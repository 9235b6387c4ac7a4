package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/robalobadob/memorygame/internal/controller"
	"github.com/robalobadob/memorygame/internal/daily"
	"github.com/robalobadob/memorygame/internal/game"
	"github.com/robalobadob/memorygame/internal/tone"
)

const (
	cellW = 7
	cellH = 3
	top   = 2
	left  = 2
)

var (
	styleText     = tcell.StyleDefault
	styleDim      = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleCell     = tcell.StyleDefault.Background(tcell.ColorDarkSlateGray).Foreground(tcell.ColorWhite)
	styleShow     = tcell.StyleDefault.Background(tcell.ColorWhite).Foreground(tcell.ColorBlack)
	styleFeedback = tcell.StyleDefault.Background(tcell.ColorGreen).Foreground(tcell.ColorBlack)
	styleWrong    = tcell.StyleDefault.Background(tcell.ColorRed).Foreground(tcell.ColorWhite)
	styleExpected = tcell.StyleDefault.Background(tcell.ColorYellow).Foreground(tcell.ColorBlack)
	styleCursor   = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
)

// snapshotEvent carries a new controller snapshot into the event loop.
type snapshotEvent struct {
	tcell.EventTime
	snap controller.Snapshot
}

type ui struct {
	screen tcell.Screen
	ctl    *controller.Controller
	player *tone.Player
	daily  bool
	salt   string

	snap   controller.Snapshot
	cursor int
}

func newUI(s tcell.Screen, ctl *controller.Controller, p *tone.Player) *ui {
	return &ui{screen: s, ctl: ctl, player: p, snap: ctl.Snapshot()}
}

func (u *ui) run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go u.watch(ctx)

	u.draw()
	for {
		switch ev := u.screen.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventResize:
			u.screen.Sync()
			u.draw()
		case *snapshotEvent:
			u.apply(ev.snap)
		case *tcell.EventMouse:
			if ev.Buttons()&tcell.Button1 != 0 {
				if id, ok := u.cellAt(ev.Position()); ok {
					u.cursor = id
					u.pick(id)
				}
			}
		case *tcell.EventKey:
			if !u.key(ev) {
				return
			}
		}
	}
}

// watch forwards every observable change to the event loop.
func (u *ui) watch(ctx context.Context) {
	var since uint64
	for {
		snap, err := u.ctl.Wait(ctx, since)
		// a closed controller returns at once with no new version
		if err != nil || snap.Version <= since {
			return
		}
		since = snap.Version
		ev := &snapshotEvent{snap: snap}
		ev.SetEventNow()
		// a full queue drops this one; the next change carries the state
		_ = u.screen.PostEvent(ev)
	}
}

// apply redraws and sounds newly revealed cells.
func (u *ui) apply(next controller.Snapshot) {
	if next.Version < u.snap.Version {
		return
	}
	if u.player != nil {
		shown := make(map[int]bool, len(u.snap.Visible))
		for _, id := range u.snap.Visible {
			shown[id] = true
		}
		for _, id := range next.Visible {
			if !shown[id] {
				u.player.PlayCell(id)
			}
		}
	}
	u.snap = next
	u.draw()
}

// key handles one key press and reports whether to keep running.
func (u *ui) key(ev *tcell.EventKey) bool {
	size := u.snap.Board.Size
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyLeft:
		u.move(-1, size)
	case tcell.KeyRight:
		u.move(1, size)
	case tcell.KeyUp:
		u.move(-size, size)
	case tcell.KeyDown:
		u.move(size, size)
	case tcell.KeyEnter:
		if u.snap.Phase == game.PhaseLost {
			u.ctl.AcknowledgeGameOver()
		} else {
			u.pick(u.cursor)
		}
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case ' ':
			u.pick(u.cursor)
		case 's':
			if u.daily {
				_ = u.ctl.StartDaily(u.snap.Difficulty, daily.Rand(time.Now(), u.salt))
			} else {
				_ = u.ctl.StartGame(u.snap.Difficulty)
			}
		case 'h':
			u.ctl.UseHint()
		case 'r':
			u.ctl.Reset()
		case '1', '2', '3':
			_ = u.ctl.ChangeDifficulty(game.Difficulties[ev.Rune()-'1'])
			u.cursor = 0
		}
	}
	u.draw()
	return true
}

func (u *ui) move(delta, size int) {
	n := size * size
	if n == 0 {
		return
	}
	u.cursor = ((u.cursor+delta)%n + n) % n
}

func (u *ui) pick(id int) {
	out, err := u.ctl.SelectCell(id)
	if err != nil || u.player == nil {
		return
	}
	if out == game.OutcomeLost {
		u.player.PlayError()
	} else if out != game.OutcomeIgnored {
		u.player.PlayCell(id)
	}
}

func (u *ui) cellAt(x, y int) (int, bool) {
	size := u.snap.Board.Size
	col, row := (x-left)/cellW, (y-top)/cellH
	if x < left || y < top || col >= size || row >= size {
		return 0, false
	}
	return row*size + col, true
}

// ---------------------------------------------------------------------------
// drawing

func (u *ui) draw() {
	s := u.screen
	s.Clear()
	snap := u.snap

	title := fmt.Sprintf("Memory Grid  [%s]  phase: %s  round: %d  time: %ds", snap.Difficulty, snap.Phase, snap.Round, snap.Elapsed)
	if snap.Daily {
		title += "  (daily)"
	}
	u.text(left, 0, styleText, title)

	visible := set(snap.Visible)
	revealed := set(snap.Revealed)
	for _, c := range snap.Board.Cells {
		row, col := c.ID/snap.Board.Size, c.ID%snap.Board.Size
		st := u.cellStyle(c)
		switch {
		case snap.WrongCell != nil && c.ID == *snap.WrongCell:
			st = styleWrong
		case snap.ExpectedCell != nil && c.ID == *snap.ExpectedCell:
			st = styleExpected
		case visible[c.ID]:
			st = styleShow
		case revealed[c.ID]:
			st = styleFeedback
		}
		u.box(left+col*cellW, top+row*cellH, st, label(c), c.ID == u.cursor)
	}

	y := top + snap.Board.Size*cellH + 1
	u.text(left, y, styleText, u.status())
	u.text(left, y+1, styleDim, "s start  space/enter/click select  h hint  r reset  1-3 difficulty  q quit")

	u.text(left, y+3, styleText, "Top scores ("+string(snap.Difficulty)+"):")
	scores := snap.Leaderboard[snap.Difficulty]
	if len(scores) == 0 {
		u.text(left+2, y+4, styleDim, "none yet")
	}
	for i, sc := range scores {
		line := fmt.Sprintf("%d. %d rounds in %ds  %s", i+1, sc.Rounds, sc.ElapsedSeconds, sc.RecordedAt.Local().Format("2006-01-02 15:04"))
		u.text(left+2, y+4+i, styleText, line)
	}
	s.Show()
}

func (u *ui) status() string {
	snap := u.snap
	switch snap.Phase {
	case game.PhaseIdle:
		return "Press s to start."
	case game.PhaseShowing:
		return "Watch the sequence..."
	case game.PhasePlaying:
		hint := "h for a hint"
		if snap.HintUsed {
			hint = "hint used"
		}
		return fmt.Sprintf("Your turn: %d/%d  (%s)", snap.InputLength, snap.Round, hint)
	case game.PhaseLost:
		if snap.Score == nil {
			return "Game over."
		}
		msg := fmt.Sprintf("Game over after %d rounds in %ds.", snap.Score.Rounds, snap.Score.ElapsedSeconds)
		if snap.Rank > 0 {
			msg += fmt.Sprintf(" New #%d score!", snap.Rank)
		}
		return msg + " Enter to continue."
	}
	return ""
}

func (u *ui) cellStyle(c game.Cell) tcell.Style {
	if c.Kind == game.KindColor {
		return tcell.StyleDefault.Background(tcell.GetColor(c.Payload)).Foreground(tcell.ColorBlack)
	}
	return styleCell
}

func label(c game.Cell) string {
	switch c.Kind {
	case game.KindImage:
		return "img"
	case game.KindColor:
		return ""
	}
	return c.Payload
}

func (u *ui) box(x, y int, st tcell.Style, text string, cursor bool) {
	for dy := 0; dy < cellH-1; dy++ {
		for dx := 0; dx < cellW-1; dx++ {
			u.screen.SetContent(x+dx, y+dy, ' ', nil, st)
		}
	}
	pad := (cellW - 1 - len(text)) / 2
	if pad < 0 {
		pad = 0
	}
	u.text(x+pad, y, st, text)
	if cursor {
		u.text(x, y+cellH-2, styleCursor.Background(bg(st)), strings.Repeat("_", cellW-1))
	}
}

func (u *ui) text(x, y int, st tcell.Style, s string) {
	for i, r := range []rune(s) {
		u.screen.SetContent(x+i, y, r, nil, st)
	}
}

func bg(st tcell.Style) tcell.Color {
	_, b, _ := st.Decompose()
	return b
}

func set(ids []int) map[int]bool {
	m := make(map[int]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}
