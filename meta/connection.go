package meta

import (
	"errors"
	"fmt"

	"github.com/sasha-s/go-deadlock"
)

// ---------------------------------------------------------------------------
// Signal connections
// ---------------------------------------------------------------------------

// Connection links a sender's signal to a receiver's method.
type Connection struct {
	Sender   Object
	Signal   MetaMethod
	Receiver Object
	Method   MetaMethod
	Type     ConnectionType
}

var (
	connMu      deadlock.RWMutex
	connections = make(map[Object][]*Connection)
)

// Connect connects signal on sender to method on receiver. The method's
// parameters must be a prefix of the signal's.
func Connect(sender Object, signal string, receiver Object, method string, ct ConnectionType) (*Connection, error) {
	if sender == nil || receiver == nil {
		return nil, fmt.Errorf("%w: connect with nil sender or receiver", ErrNotFound)
	}
	signal = NormalizeSignature(signal)
	method = NormalizeSignature(method)

	smo, rmo := sender.MetaObject(), receiver.MetaObject()
	sigIdx := smo.IndexOfSignal(signal)
	if sigIdx < 0 {
		return nil, warn(ErrNotFound, "connect: no such signal %s::%s", smo.ClassName(), signal)
	}
	methIdx := rmo.IndexOfMethod(method)
	if methIdx < 0 {
		return nil, warn(ErrNotFound, "connect: no such method %s::%s", rmo.ClassName(), method)
	}
	if !CheckConnectArgs(signal, method) {
		return nil, warn(ErrArgumentMismatch, "connect: incompatible sender/receiver arguments %s::%s --> %s::%s",
			smo.ClassName(), signal, rmo.ClassName(), method)
	}

	c := &Connection{
		Sender:   sender,
		Signal:   smo.Method(sigIdx),
		Receiver: receiver,
		Method:   rmo.Method(methIdx),
		Type:     ct,
	}
	connMu.Lock()
	connections[sender] = append(connections[sender], c)
	connMu.Unlock()
	return c, nil
}

// Disconnect removes c. Returns false if it was not connected.
func Disconnect(c *Connection) bool {
	if c == nil {
		return false
	}
	connMu.Lock()
	defer connMu.Unlock()

	list := connections[c.Sender]
	for i, other := range list {
		if other == c {
			list = append(list[:i:i], list[i+1:]...)
			if len(list) == 0 {
				delete(connections, c.Sender)
			} else {
				connections[c.Sender] = list
			}
			return true
		}
	}
	return false
}

// DisconnectAll removes every connection where obj is sender or receiver.
func DisconnectAll(obj Object) {
	connMu.Lock()
	defer connMu.Unlock()

	delete(connections, obj)
	for sender, list := range connections {
		kept := list[:0:0]
		for _, c := range list {
			if c.Receiver != obj {
				kept = append(kept, c)
			}
		}
		if len(kept) == 0 {
			delete(connections, sender)
		} else {
			connections[sender] = kept
		}
	}
}

// Connections returns the connections whose sender is obj.
func Connections(sender Object) []*Connection {
	connMu.RLock()
	defer connMu.RUnlock()
	return append([]*Connection(nil), connections[sender]...)
}

// Activate delivers signal signalIndex (a global method index) of sender
// to every connected method. Arguments are truncated to each receiver's
// parameter count.
func Activate(sender Object, signalIndex int, args ...Value) error {
	connMu.RLock()
	var targets []*Connection
	for _, c := range connections[sender] {
		if c.Signal.MethodIndex() == signalIndex {
			targets = append(targets, c)
		}
	}
	connMu.RUnlock()

	var errs []error
	for _, c := range targets {
		n := min(c.Method.ParameterCount(), len(args))
		if err := c.Method.Invoke(c.Receiver, c.Type, nil, args[:n]...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emit activates the signal with the given signature, boxing args with
// ValueOf.
func Emit(sender Object, signal string, args ...any) error {
	mo := sender.MetaObject()
	idx := mo.IndexOfSignal(NormalizeSignature(signal))
	if idx < 0 {
		return warn(ErrNotFound, "emit: no such signal %s::%s", mo.ClassName(), signal)
	}
	return Activate(sender, idx, Values(args...)...)
}
