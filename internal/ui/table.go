package ui

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RelayStats holds the counts shown by the relay stats table.
type RelayStats struct {
	Connections int
	Rooms       int
	Waiting     int
	InCall      int
}

// StatsTableView renders the relay's occupancy.
func StatsTableView(stats RelayStats) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.Style().Format.Footer = text.FormatDefault
	t.SetTitle("Relay Stats")

	if stats.Rooms == 0 {
		t.AppendRow(table.Row{MutedStyle.Render("no open rooms"), ""})
	} else {
		t.AppendRow(table.Row{"open rooms", stats.Rooms})
		t.AppendRow(table.Row{"waiting for a partner", stats.Waiting})
	}

	inCall := fmt.Sprintf("%d in call", stats.InCall)
	if stats.InCall > 0 {
		inCall = SuccessStyle.Render(inCall)
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d connections", stats.Connections), inCall})
	return t.Render()
}

// ChatLine formats a received or sent chat line.
func ChatLine(from string, self bool, at time.Time, msg string) string {
	name := PeerNameStyle.Render(from)
	if self {
		name = SelfNameStyle.Render(from)
	}
	return fmt.Sprintf("%s %s %s", MutedStyle.Render(at.Format("15:04")), name, msg)
}

// RoomView renders the box shown after joining a room.
func RoomView(roomID string, created bool) string {
	headline := IconRoom + " Joined room"
	hint := "Connecting to your partner..."
	if created {
		headline = IconSuccess + " Room created"
		hint = "Share this with your partner:  tandem join " + roomID
	}

	content := fmt.Sprintf("%s\n\n%s Room ID:  %s\n%s",
		headline,
		IconCopy, BoldStyle.Foreground(Primary).Render(roomID),
		MutedStyle.Render(hint),
	)
	return RoomBoxStyle.Render(content)
}
