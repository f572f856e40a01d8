package metrics

import (
	"context"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// MethodTracer times a single method call as a New Relic segment. A nil
// *MethodTracer is valid and does nothing.
type MethodTracer struct {
	txn *newrelic.Transaction
	seg *newrelic.Segment

	// ownsTxn is set when no transaction was in flight and the tracer started
	// a background one that it must end
	ownsTxn bool
}

// TraceMethodCall starts a segment named "component method" within the
// request's transaction. Outside of a request, a background transaction is
// started when ctx carries an application.
func TraceMethodCall(ctx context.Context, component, method string) *MethodTracer {
	name := component + " " + method

	if txn := newrelic.FromContext(ctx); txn != nil {
		return &MethodTracer{txn: txn, seg: txn.StartSegment(name)}
	}

	app, ok := fromContext(ctx)
	if !ok {
		return nil
	}

	txn := app.StartTransaction(name)
	return &MethodTracer{txn: txn, seg: txn.StartSegment(name), ownsTxn: true}
}

// AddAttribute attaches a key-value pair to the segment
func (t *MethodTracer) AddAttribute(key string, value interface{}) {
	if t == nil {
		return
	}
	t.seg.AddAttribute(key, value)
}

// OnError reports err against the enclosing transaction
func (t *MethodTracer) OnError(err error) {
	if t == nil || err == nil {
		return
	}
	t.txn.NoticeError(err)
}

func (t *MethodTracer) End() {
	if t == nil {
		return
	}

	t.seg.End()
	if t.ownsTxn {
		t.txn.End()
	}
}
