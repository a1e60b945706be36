package monitoring

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRootCause(t *testing.T) {
	inner := errors.New("connection reset")
	wrapped := fmt.Errorf("push delta: %w", fmt.Errorf("transport: %w", inner))
	assert.Equal(t, inner, RootCause(wrapped))
	assert.Equal(t, inner, RootCause(inner))
	assert.Nil(t, RootCause(nil))

	joined := errors.Join(wrapped, errors.New("other"))
	assert.Equal(t, inner, RootCause(joined))
}

func TestPanicErrorUnwrap(t *testing.T) {
	inner := errors.New("nil map")
	p := &PanicError{Value: fmt.Errorf("mapper: %w", inner)}
	assert.Equal(t, inner, RootCause(p))
	assert.Contains(t, p.Error(), "panic")

	s := &PanicError{Value: "boom"}
	assert.Equal(t, s, RootCause(s))
}

func TestMultiFaultSink(t *testing.T) {
	var calls []string
	sink := MultiFaultSink{
		FaultFunc(func(_ time.Time, id string, _ error) { calls = append(calls, "a:"+id) }),
		nil,
		FaultFunc(func(_ time.Time, id string, _ error) { calls = append(calls, "b:"+id) }),
	}
	sink.Fault(time.Now(), "adapter", errors.New("x"))
	assert.Equal(t, []string{"a:adapter", "b:adapter"}, calls)
	NopFaultSink{}.Fault(time.Now(), "", nil)
}
