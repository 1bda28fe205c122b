package round

import "github.com/ruocuoguo23/wallet-mpc/pkg/party"

// Abort is the terminal session of a failed execution.
type Abort struct {
	*Helper
	Culprits []party.ID
	Err      error
}

func (Abort) VerifyMessage(Message) error { return nil }
func (Abort) StoreMessage(Message) error  { return nil }
func (r *Abort) Finalize(chan<- *Message) (Session, error) {
	return r, nil
}
func (Abort) MessageContent() Content { return nil }
func (Abort) Number() Number          { return 0 }

// Output is the terminal session of a successful execution.
type Output struct {
	*Helper
	Result interface{}
}

func (Output) VerifyMessage(Message) error { return nil }
func (Output) StoreMessage(Message) error  { return nil }
func (r *Output) Finalize(chan<- *Message) (Session, error) {
	return r, nil
}
func (Output) MessageContent() Content { return nil }
func (Output) Number() Number          { return 0 }
