// Package transport publishes per-frame analysis data to external
// consumers while a render runs. Senders are fire-and-forget; a slow or
// dead consumer never blocks the frame loop.
package transport

// FrameMessage is the per-frame payload sent to consumers.
type FrameMessage struct {
	Type  string    `json:"type"`
	Frame int       `json:"frame"`
	Time  float64   `json:"time"`
	Bands []float32 `json:"bands"`
	Beat  float32   `json:"beat"`
	RMS   float32   `json:"rms"`
	BPM   float64   `json:"bpm"`
}

// Transport sends analysis payloads to consumers.
type Transport interface {
	Send(data interface{}) error
	Close() error
}

// Null is the no-op transport used when publishing is disabled.
type Null struct{}

var _ Transport = Null{}

func (Null) Send(interface{}) error { return nil }
func (Null) Close() error           { return nil }

// Multi fans a payload out to several transports. Send returns the
// first error but still attempts every transport.
type Multi []Transport

var _ Transport = Multi{}

func (m Multi) Send(data interface{}) error {
	var first error
	for _, t := range m {
		if err := t.Send(data); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, t := range m {
		if err := t.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
