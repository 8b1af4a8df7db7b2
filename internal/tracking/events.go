package tracking

import (
	"time"

	"parcel-tracking/internal/models"
)

// event is anything posted into a widget's loop.
type event interface{}

type (
	pushOpened struct {
		gen  int
		conn PushConn
	}
	pushFailed struct {
		gen int
		err error
	}
	pushMessage struct {
		gen  int
		data []byte
	}
	pushClosed struct {
		gen int
		err error
	}
	reconnectDue   struct{ gen int }
	connectTimeout struct{ gen int }
	pollTick       struct{}
	pollResult     struct {
		seq int
		pos models.Coordinate
		err error
	}
	frameTick struct {
		anim int
		now  time.Time
	}
	routeResult struct {
		seq  int
		info models.RouteInfo
		err  error
	}
	statusChanged     struct{ status models.ParcelStatus }
	recenterRequested struct{}
	mapDragged        struct{}
	unmountRequested  struct{}
)
