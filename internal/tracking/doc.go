// Package tracking implements the live parcel tracking widget.
//
// A Widget follows one parcel's driver. It owns:
//   - a position source that prefers a per-driver push channel and falls back
//     to polling while the channel is unavailable,
//   - an animator that glides the driver marker between received positions,
//   - a viewport controller that owns markers and camera framing,
//   - a route overlay with distance and duration to the delivery point,
//   - a pure legend derived from status and connection state.
//
// All widget state is owned by a single event loop. Transports, timers, frame
// callbacks and map listeners only post events into that loop, so ordering
// and preemption are decided in one place.
package tracking
