package main

import (
	"fmt"
	"math"
	"time"

	"github.com/hako/durafmt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"arenaclient/session"
)

const roundLength = 120 * time.Second

var (
	shortUnits, _ = durafmt.DefaultUnitsCoder.Decode("y:yrs,wk:wks,d:d,h:h,m:m,s:s,ms:ms,us:us")
	upperCaser    = cases.Upper(language.AmericanEnglish)
)

func playerName(p *session.Player) string {
	if p.Name == "" {
		return "Unknown"
	}
	return p.Name
}

// summaryName is the name as shown on the end-of-round overlay.
func summaryName(p *session.Player) string {
	return upperCaser.String(playerName(p))
}

func roundRemaining(snap *session.Snapshot, now time.Time) time.Duration {
	left := roundLength - now.Sub(snap.StartTime)
	if left < 0 {
		return 0
	}
	return left.Truncate(time.Second)
}

func secondsLeft(end, now time.Time) int {
	return max(0, int(math.Ceil(end.Sub(now).Seconds())))
}

func buffLabel(b *session.Buff, now time.Time) string {
	switch b.Type {
	case session.PowerupBombRange:
		return fmt.Sprintf("Range Lv%d %ds", b.Level, secondsLeft(b.EndTime, now))
	case session.PowerupShield:
		return fmt.Sprintf("Shield %ds", secondsLeft(b.EndTime, now))
	}
	return fmt.Sprintf("%s %ds", b.Type, secondsLeft(b.EndTime, now))
}

// firstBuff returns the player's buff with the smallest type name, so the
// panel shows the same one every refresh.
func firstBuff(p *session.Player) *session.Buff {
	var best *session.Buff
	for _, b := range p.Powerups {
		if b != nil && (best == nil || b.Type < best.Type) {
			best = b
		}
	}
	return best
}

// scoreboardLines builds the side panel: remaining round time, then players
// by score with their first active buff.
func scoreboardLines(snap *session.Snapshot, now time.Time) []string {
	if snap == nil {
		return nil
	}
	var lines []string
	if snap.HasStart() {
		left := roundRemaining(snap, now)
		lines = append(lines, "Time: "+durafmt.Parse(left).LimitFirstN(2).Format(shortUnits))
	}
	for _, p := range rankPlayers(snap) {
		line := fmt.Sprintf("%s  %d", playerName(p), p.Score)
		if b := firstBuff(p); b != nil {
			line += "  " + buffLabel(b, now)
		}
		lines = append(lines, line)
	}
	return lines
}
