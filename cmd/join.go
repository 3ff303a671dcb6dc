package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/tandem/internal/config"
	"github.com/BioHazard786/tandem/internal/logging"
	"github.com/BioHazard786/tandem/internal/peer"
	"github.com/BioHazard786/tandem/internal/roomname"
	"github.com/BioHazard786/tandem/internal/ui"
)

var (
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool
)

var joinCmd = &cobra.Command{
	Use:     "join [room]",
	Aliases: []string{"j"},
	Short:   "Join a room and chat with the other peer",
	Long: `Join a room on the relay and open a WebRTC data channel to whoever else
is in it. Lines typed on stdin are sent to the other peer.

Without a room name a memorable one is generated for you to share.

Examples:
  tandem join
  tandem join brisk-heron-lantern
  tandem join --server wss://relay.example/ws my-room`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID := ""
		if len(args) == 1 {
			roomID = args[0]
		}
		return runJoin(cmd.Context(), roomID)
	},
}

func init() {
	joinCmd.Flags().StringVar(&flagSTUN, "stun", "", "STUN server URL (env STUN_SERVER)")
	joinCmd.Flags().StringVar(&flagTURN, "turn", "", "TURN server host (env TURN_SERVER)")
	joinCmd.Flags().StringVar(&flagTURNUser, "turn-user", "", "TURN username (env TURN_USERNAME)")
	joinCmd.Flags().StringVar(&flagTURNPass, "turn-pass", "", "TURN password (env TURN_PASSWORD)")
	joinCmd.Flags().BoolVar(&flagRelay, "relay", false, "only use the TURN server for media (env FORCE_RELAY)")
	rootCmd.AddCommand(joinCmd)
}

func runJoin(ctx context.Context, roomID string) error {
	cfg, err := loadPeerConfig(config.PeerOptions{
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
		ForceRelay: flagRelay,
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logging.Init(cfg.LogLevel)

	roomID = strings.TrimSpace(roomID)
	var link *relayLink
	if roomID == "" {
		roomID, err = roomname.Claim(func(id string) error {
			link, err = openRoom(ctx, cfg, log, id, true)
			return err
		})
	} else {
		link, err = openRoom(ctx, cfg, log, roomID, false)
	}
	if err != nil {
		return err
	}
	client := link.client
	defer client.Close()

	name := hostName()
	session := peer.NewSession(cfg, log, client, name)

	status := ui.NewStatusUI(os.Stdout, "joining "+roomID)
	chat := &chatView{status: status, roomID: roomID, log: log}
	session.OnStatus = chat.onStatus
	session.OnFrame = chat.onFrame
	status.Start()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- session.Run(runCtx, prepend(runCtx, link.first, link.events))
	}()

	lines := readLines(os.Stdin)
	for {
		select {
		case err := <-errCh:
			session.Close()
			status.Stop()
			if errors.Is(err, peer.ErrRoomFull) {
				return fmt.Errorf("room %s already has two peers, pick another: %w", roomID, err)
			}
			return err

		case line, ok := <-lines:
			if !ok {
				// stdin closed: leave the room
				lines = nil
				cancel()
				continue
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if err := session.Send(line); err != nil {
				status.Println(ui.WarningStyle.Render("Not connected yet, message not sent"))
				continue
			}
			status.Println(ui.ChatLine(name, true, time.Now(), line))
		}
	}
}

// relayLink is a relay connection whose join request has been answered.
type relayLink struct {
	client *peer.Client
	first  peer.Event
	events <-chan peer.Event
}

// openRoom connects to the relay and joins roomID. When fresh is set the
// room must not exist yet: any answer other than room-created releases the
// connection and reports roomname.ErrTaken.
func openRoom(ctx context.Context, cfg *config.Peer, log *slog.Logger, roomID string, fresh bool) (*relayLink, error) {
	client := peer.NewClient(cfg.ServerURL)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}

	handler := peer.NewHandler(log, client.Incoming())
	go handler.Start()

	if err := client.JoinRoom(roomID); err != nil {
		client.Close()
		return nil, peer.NewError("join room", err)
	}

	var first peer.Event
	select {
	case ev, ok := <-handler.Events():
		if !ok {
			client.Close()
			return nil, peer.NewError("join room", peer.ErrConnectionClosed)
		}
		first = ev
	case <-ctx.Done():
		client.Close()
		return nil, ctx.Err()
	}

	if fresh && (first.Kind == peer.EventRoomJoined || first.Kind == peer.EventRoomFull) {
		log.Debug("Generated room name already in use", "room", roomID, "answer", first.Kind)
		client.Close()
		return nil, roomname.ErrTaken
	}

	return &relayLink{client: client, first: first, events: handler.Events()}, nil
}

// prepend replays first ahead of the rest of the stream.
func prepend(ctx context.Context, first peer.Event, rest <-chan peer.Event) <-chan peer.Event {
	out := make(chan peer.Event)
	go func() {
		defer close(out)
		ev, ok := first, true
		for ok {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
			ev, ok = <-rest
		}
	}()
	return out
}

func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

func hostName() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "peer"
	}
	return name
}

// chatView turns session callbacks into terminal output.
type chatView struct {
	status *ui.StatusUI
	roomID string
	log    *slog.Logger

	announce sync.Once
	mu       sync.Mutex
	partner  string
}

func (c *chatView) onStatus(st peer.Status) {
	switch st {
	case peer.StatusWaiting:
		c.announce.Do(func() { c.status.Println(ui.RoomView(c.roomID, true)) })
	case peer.StatusNegotiating:
		c.announce.Do(func() { c.status.Println(ui.RoomView(c.roomID, false)) })
	case peer.StatusConnected:
		c.status.Println(ui.SuccessStyle.Render(ui.IconSuccess + " Data channel open, start typing"))
	case peer.StatusPeerLeft:
		c.status.Println(ui.MutedStyle.Render(ui.IconPeer + " " + c.partnerName() + " left the room"))
		c.setPartner("")
	}
	c.status.SetStatus(st.String())
}

func (c *chatView) onFrame(f peer.Frame) {
	switch f.Type {
	case peer.FrameTypeHello:
		var hello peer.HelloPayload
		if err := f.DecodePayload(&hello); err != nil {
			c.log.Warn("Bad hello frame", "error", err)
			return
		}
		c.setPartner(hello.Name)
		c.status.Println(ui.PeerNameStyle.Render(ui.IconPeer+" "+hello.Name) + ui.MutedStyle.Render(" joined (tandem "+hello.Version+")"))

	case peer.FrameTypeChat:
		var msg peer.ChatPayload
		if err := f.DecodePayload(&msg); err != nil {
			c.log.Warn("Bad chat frame", "error", err)
			return
		}
		c.status.Println(ui.ChatLine(c.partnerName(), false, msg.SentTime(), msg.Text))

	case peer.FrameTypeBye:
		c.status.Println(ui.MutedStyle.Render(ui.IconPeer + " " + c.partnerName() + " is leaving"))
	}
}

func (c *chatView) setPartner(name string) {
	c.mu.Lock()
	c.partner = name
	c.mu.Unlock()
}

func (c *chatView) partnerName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.partner == "" {
		return "partner"
	}
	return c.partner
}
