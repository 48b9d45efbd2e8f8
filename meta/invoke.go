package meta

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Invocation engine
// ---------------------------------------------------------------------------

// ConnectionType selects how a call reaches its receiver.
type ConnectionType int

const (
	// AutoConnection is Direct when the caller runs the receiver's thread
	// loop or the receiver has no thread, and Queued otherwise.
	AutoConnection ConnectionType = iota
	DirectConnection
	QueuedConnection
	BlockingQueuedConnection
)

// MaxArguments is the largest number of arguments a call may carry.
const MaxArguments = 10

func (ct ConnectionType) String() string {
	switch ct {
	case AutoConnection:
		return "auto"
	case DirectConnection:
		return "direct"
	case QueuedConnection:
		return "queued"
	case BlockingQueuedConnection:
		return "blocking"
	}
	return fmt.Sprintf("ConnectionType(%d)", int(ct))
}

// ParseConnectionType parses the names produced by ConnectionType.String.
func ParseConnectionType(s string) (ConnectionType, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return AutoConnection, nil
	case "direct":
		return DirectConnection, nil
	case "queued":
		return QueuedConnection, nil
	case "blocking", "blockingqueued", "blocking-queued":
		return BlockingQueuedConnection, nil
	}
	return AutoConnection, fmt.Errorf("unknown connection type %q", s)
}

// QueuedCall is the event posted to a receiver's thread for queued and
// blocking-queued invocation.
type QueuedCall struct {
	Receiver Object
	Method   MetaMethod
	Args     []Value

	ret    *Value
	err    error
	waiter *rendezvous
}

// Execute performs the call on the receiver's thread.
func (c *QueuedCall) Execute() {
	if c.waiter != nil {
		if !c.waiter.begin() {
			return
		}
		defer c.waiter.finish()
		defer func() {
			if r := recover(); r != nil {
				c.err = fmt.Errorf("queued call %s panicked: %v", c.Method.MethodSignature(), r)
			}
		}()
	}
	c.err = c.Method.invokeDirect(c.Receiver, c.ret, c.Args)
	if c.waiter == nil && c.err != nil {
		log.Warningf("queued call %s failed: %v", c.Method.MethodSignature(), c.err)
	}
}

// Invoke calls member on obj. The signature "member(T1,...)" is formed
// from the type names of the leading valid arguments and looked up as
// given, then normalized. ret, when non-nil, receives the return value.
func Invoke(obj Object, member string, ct ConnectionType, ret *Value, args ...Value) error {
	if obj == nil || obj.MetaObject() == nil {
		return fmt.Errorf("%w: invoke %s on nil object", ErrNotFound, member)
	}
	if len(args) > MaxArguments {
		return warn(ErrArgumentMismatch, "invoke %s: %d arguments exceeds the maximum of %d", member, len(args), MaxArguments)
	}
	mo := obj.MetaObject()

	names := make([]string, 0, len(args))
	for _, a := range args {
		if !a.IsValid() {
			break
		}
		names = append(names, a.TypeName())
	}
	sig := member + "(" + strings.Join(names, ",") + ")"

	idx := mo.IndexOfMethod(sig)
	if idx < 0 {
		idx = mo.IndexOfMethod(NormalizeSignature(sig))
	}
	if idx < 0 {
		var candidates []string
		for _, m := range mo.Methods() {
			if m.Name() == member {
				candidates = append(candidates, m.MethodSignature())
			}
		}
		return warn(ErrNotFound, "no such method %s::%s; candidates: [%s]", mo.ClassName(), sig, strings.Join(candidates, ", "))
	}
	return mo.Method(idx).Invoke(obj, ct, ret, args...)
}

// Invoke calls the method on obj with the given connection type.
func (mm MetaMethod) Invoke(obj Object, ct ConnectionType, ret *Value, args ...Value) error {
	if !mm.IsValid() || obj == nil {
		return fmt.Errorf("%w: invoke on invalid method or nil object", ErrNotFound)
	}
	sig := mm.mobj.ClassName() + "::" + mm.MethodSignature()
	if mm.ctor {
		return fmt.Errorf("%w: %s is a constructor", ErrUnsupported, sig)
	}
	if mo := obj.MetaObject(); mo == nil || !mo.Inherits(mm.mobj) {
		return warn(ErrTypeMismatch, "invoke %s: receiver is not a %s", sig, mm.mobj.ClassName())
	}
	if len(args) > MaxArguments {
		return warn(ErrArgumentMismatch, "invoke %s: %d arguments exceeds the maximum of %d", sig, len(args), MaxArguments)
	}

	valid := 0
	for valid < len(args) && args[valid].IsValid() {
		valid++
	}
	params := mm.ParameterCount()
	if valid < params {
		return warn(ErrArgumentMismatch, "invoke %s: got %d arguments, need %d", sig, valid, params)
	}
	args = args[:params]

	if ret != nil && ret.IsValid() {
		if want := mm.ReturnType(); ret.Type() != want {
			return warn(ErrTypeMismatch, "invoke %s: return slot holds %s, method returns %s", sig, ret.TypeName(), mm.TypeName())
		}
	}

	target := ThreadOf(obj)
	current := CurrentThread()
	if ct == AutoConnection {
		// A receiver without a thread has no loop to queue on.
		if target == nil || target == current {
			ct = DirectConnection
		} else {
			ct = QueuedConnection
		}
	}

	switch ct {
	case DirectConnection:
		return mm.invokeDirect(obj, ret, args)

	case QueuedConnection:
		if ret != nil {
			return warn(ErrUnsupported, "invoke %s: queued calls cannot return values", sig)
		}
		boxed, err := boxArgs(sig, args)
		if err != nil {
			return err
		}
		if target == nil {
			return warn(ErrNoEventLoop, "invoke %s: receiver has no thread to queue on", sig)
		}
		return target.Post(&QueuedCall{Receiver: obj, Method: mm, Args: boxed})

	case BlockingQueuedConnection:
		if target == nil {
			return warn(ErrNoEventLoop, "invoke %s: receiver has no thread to queue on", sig)
		}
		if target == current {
			err := warn(ErrDeadlockRisk, "invoke %s: dead lock detected, blocking call on the receiver's own thread %s", sig, target.Name())
			if CurrentOptions().BlockingSameThreadIsError {
				return err
			}
		}
		call := &QueuedCall{Receiver: obj, Method: mm, Args: args, ret: ret, waiter: newRendezvous()}
		if err := target.Post(call); err != nil {
			return err
		}
		if !call.waiter.wait(target) {
			return fmt.Errorf("%w: invoke %s: %s stopped before the call ran", ErrThreadStopped, sig, target.Name())
		}
		return call.err
	}
	return fmt.Errorf("%w: connection type %v", ErrUnsupported, ct)
}

// invokeDirect converts the arguments to the declared parameter types and
// calls the dispatch table synchronously.
func (mm MetaMethod) invokeDirect(obj Object, ret *Value, args []Value) error {
	sig := mm.mobj.ClassName() + "::" + mm.MethodSignature()
	disp := mm.mobj.Dispatcher()
	if disp == nil {
		return warn(ErrUnsupported, "invoke %s: class has no dispatch table", sig)
	}
	conv, err := convertArgs(sig, mm.ParameterTypes(), args)
	if err != nil {
		return err
	}
	result, err := disp.InvokeMethod(obj, mm.local, conv)
	if err != nil {
		return fmt.Errorf("invoke %s: %w", sig, err)
	}
	if ret != nil {
		if rt := mm.ReturnType(); rt != Void && rt != UnknownType && result.IsValid() {
			c, err := result.Convert(rt)
			if err != nil {
				warn(err, "invoke %s: result %s not convertible to %s; stored unconverted", sig, result.TypeName(), TypeName(rt))
			} else {
				result = c
			}
		}
		*ret = result
	}
	return nil
}

// convertArgs converts args to the named parameter types. Parameters of
// unregistered types receive the argument unchanged.
func convertArgs(sig string, params []string, args []Value) ([]Value, error) {
	conv := make([]Value, len(args))
	for i, a := range args {
		if i >= len(params) {
			conv[i] = a
			continue
		}
		t := TypeIDByName(params[i])
		if t == UnknownType {
			conv[i] = a
			continue
		}
		c, err := a.Convert(t)
		if err != nil {
			return nil, warn(ErrTypeMismatch, "invoke %s: argument %d: %v", sig, i, err)
		}
		conv[i] = c
	}
	return conv, nil
}

// boxArgs copies arguments for queued delivery. Every non-nil argument
// must have a registered type.
func boxArgs(sig string, args []Value) ([]Value, error) {
	boxed := make([]Value, len(args))
	for i, a := range args {
		if a.Type() == UnknownType && a.Interface() != nil {
			return nil, warn(ErrUnregisteredType,
				"invoke %s: cannot queue argument %d of type %q (register it with RegisterType)", sig, i, a.TypeName())
		}
		boxed[i] = NewValue(a.Type(), copyValue(a.Type(), a.Interface()))
	}
	return boxed, nil
}

// NewInstance creates an object through the constructor matching the
// argument types, looked up as given and then normalized.
func (m *MetaObject) NewInstance(args ...Value) (Object, error) {
	if len(args) > MaxArguments {
		return nil, warn(ErrArgumentMismatch, "construct %s: %d arguments exceeds the maximum of %d", m.ClassName(), len(args), MaxArguments)
	}
	names := make([]string, 0, len(args))
	for _, a := range args {
		if !a.IsValid() {
			break
		}
		names = append(names, a.TypeName())
	}
	sig := m.ClassName() + "(" + strings.Join(names, ",") + ")"

	idx := m.IndexOfConstructor(sig)
	if idx < 0 {
		idx = m.IndexOfConstructor(NormalizeSignature(sig))
	}
	if idx < 0 {
		return nil, warn(ErrNotFound, "no such constructor %s", sig)
	}
	disp := m.Dispatcher()
	if disp == nil {
		return nil, warn(ErrUnsupported, "construct %s: class has no dispatch table", m.ClassName())
	}
	ctor := m.Constructor(idx)
	conv, err := convertArgs(sig, ctor.ParameterTypes(), args[:len(names)])
	if err != nil {
		return nil, err
	}
	obj, err := disp.CreateInstance(idx, conv)
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", sig, err)
	}
	return obj, nil
}
