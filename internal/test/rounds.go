package test

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ruocuoguo23/wallet-mpc/internal/round"
	"github.com/ruocuoguo23/wallet-mpc/pkg/party"
)

// Rule hooks into a protocol execution for fault injection.
type Rule interface {
	// ModifyBefore runs on each session before Finalize.
	ModifyBefore(r round.Session)
	// ModifyAfter runs on the session returned by Finalize.
	ModifyAfter(rNext round.Session)
	// ModifyContent can tamper with an outgoing message body.
	ModifyContent(rNext round.Session, to party.ID, content round.Content)
}

// Rounds advances every session by one round, delivering all produced
// messages. It reports done=true once all sessions are terminal.
func Rounds(rounds []round.Session, rule Rule) (error, bool) {
	var (
		err      error
		errGroup errgroup.Group
		n        = len(rounds)
		out      = make(chan *round.Message, n*(n+1))
	)
	if _, err = checkAllRoundsSame(rounds); err != nil {
		return err, false
	}

	for id := range rounds {
		idx := id
		r := rounds[idx]
		errGroup.Go(func() error {
			var (
				rNew    round.Session
				loopErr error
			)
			if rule != nil {
				rule.ModifyBefore(r)
				outFake := make(chan *round.Message, n+1)
				rNew, loopErr = r.Finalize(outFake)
				close(outFake)
				if rNew != nil {
					rule.ModifyAfter(rNew)
					for msg := range outFake {
						rule.ModifyContent(rNew, msg.To, msg.Content)
						out <- msg
					}
				}
			} else {
				rNew, loopErr = r.Finalize(out)
			}
			if loopErr != nil {
				return loopErr
			}
			if rNew != nil {
				rounds[idx] = rNew
			}
			return nil
		})
	}
	if err = errGroup.Wait(); err != nil {
		return err, false
	}
	close(out)

	roundType, err := checkAllRoundsSame(rounds)
	if err != nil {
		return err, false
	}
	if roundType == reflect.TypeOf(&round.Output{}) || roundType == reflect.TypeOf(&round.Abort{}) {
		return nil, true
	}

	for msg := range out {
		msgBytes, err := cbor.Marshal(msg.Content)
		if err != nil {
			return err, false
		}
		for _, r := range rounds {
			m := *msg
			r := r
			if msg.From == r.SelfID() || msg.Content.RoundNumber() != r.Number() {
				continue
			}
			errGroup.Go(func() error {
				if m.Broadcast {
					b, ok := r.(round.BroadcastRound)
					if !ok {
						return errors.New("broadcast message but not a broadcast round")
					}
					m.Content = b.BroadcastContent()
					if err := cbor.Unmarshal(msgBytes, m.Content); err != nil {
						return err
					}
					return b.StoreBroadcastMessage(m)
				}
				if m.To != party.None && m.To != r.SelfID() {
					return nil
				}
				m.Content = r.MessageContent()
				if err := cbor.Unmarshal(msgBytes, m.Content); err != nil {
					return err
				}
				if err := r.VerifyMessage(m); err != nil {
					return err
				}
				return r.StoreMessage(m)
			})
		}
		if err = errGroup.Wait(); err != nil {
			return err, false
		}
	}
	return nil, false
}

func checkAllRoundsSame(rounds []round.Session) (reflect.Type, error) {
	var t reflect.Type
	for _, r := range rounds {
		t2 := reflect.TypeOf(r)
		if t == nil {
			t = t2
		} else if t != t2 {
			return t, fmt.Errorf("two different rounds: %s %s", t, t2)
		}
	}
	return t, nil
}
