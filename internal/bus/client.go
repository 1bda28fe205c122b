package bus

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// HTTPDialer talks to a remote registry through the gateway's HTTP
// surface.
type HTTPDialer struct {
	// BaseURL is the gateway root, e.g. "http://gateway:8000".
	BaseURL string
	// Client defaults to http.DefaultClient. Subscriptions hold the
	// connection open for the life of the session, so the client must
	// not enforce an overall timeout.
	Client *http.Client
}

// Room implements Dialer.
func (d *HTTPDialer) Room(roomID string) RoomHandle {
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &httpRoom{
		client: client,
		base:   strings.TrimSuffix(d.BaseURL, "/"),
		roomID: roomID,
	}
}

type httpRoom struct {
	client *http.Client
	base   string
	roomID string
}

func (r *httpRoom) endpoint(action string) string {
	return fmt.Sprintf("%s/rooms/%s/%s", r.base, url.PathEscape(r.roomID), action)
}

func (r *httpRoom) Subscribe(ctx context.Context, lastEventID int64) (<-chan Event, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint("subscribe"), nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if lastEventID >= 0 {
		req.Header.Set("Last-Event-Id", strconv.FormatInt(lastEventID, 10))
	}
	resp, err := r.client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if resp.StatusCode == http.StatusConflict {
		resp.Body.Close()
		cancel()
		return nil, nil, ErrHistoryGap
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, nil, fmt.Errorf("bus: subscribe returned %s", resp.Status)
	}

	out := make(chan Event, DefaultSubscriberBuffer)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		if err := readEventStream(resp.Body, out, ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).WithField("room", r.roomID).Warn("event stream ended")
		}
	}()
	return out, cancel, nil
}

// readEventStream parses the SSE framing: "id:", "event:" and "data:"
// lines separated by blank lines.
func readEventStream(body io.Reader, out chan<- Event, ctx context.Context) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxBroadcastBody)

	var (
		id    uint64
		event string
		data  bytes.Buffer
	)
	flush := func() error {
		defer func() { id, event = 0, ""; data.Reset() }()
		if data.Len() == 0 || event == "error" {
			if event == "error" {
				return fmt.Errorf("bus: %s", data.String())
			}
			return nil
		}
		raw, err := base64.StdEncoding.DecodeString(data.String())
		if err != nil {
			return fmt.Errorf("bus: bad event payload: %w", err)
		}
		var msg Msg
		if err := msg.UnmarshalBinary(raw); err != nil {
			return err
		}
		select {
		case out <- Event{ID: id, Msg: msg}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if err := flush(); err != nil {
				return err
			}
		case strings.HasPrefix(line, "id:"):
			id, _ = strconv.ParseUint(strings.TrimSpace(line[3:]), 10, 64)
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(line[6:])
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimSpace(line[5:]))
		}
	}
	return scanner.Err()
}

func (r *httpRoom) Broadcast(ctx context.Context, msg Msg) (uint64, error) {
	payload, err := msg.MarshalBinary()
	if err != nil {
		return 0, err
	}
	encoded := base64.StdEncoding.EncodeToString(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint("broadcast"), strings.NewReader(encoded))
	if err != nil {
		return 0, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusGone {
		return 0, ErrRoomClosed
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("bus: broadcast returned %s", resp.Status)
	}
	var body broadcastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	if !body.OK {
		return 0, fmt.Errorf("bus: broadcast rejected")
	}
	return body.EventID, nil
}

func (r *httpRoom) IssueUniqueIndex(ctx context.Context) (uint16, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint("issue_unique_idx"), nil)
	if err != nil {
		return 0, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("bus: issue_unique_idx returned %s", resp.Status)
	}
	var body issuedUniqueIdx
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	return body.UniqueIdx, nil
}

func (r *httpRoom) Close(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint("close"), nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
