package ws

import (
	"encoding/json"

	"github.com/chatline/chat-delivery-service/internal/domain/model"
)

// marshalEvent serializes an outbound event for the wire. The payload
// structs already carry the client-facing JSON shape, so the frame is the
// payload itself. The encoded bytes are cached on the event so a retried
// emit does not marshal twice.
func marshalEvent(ev model.Eventer) ([]byte, error) {
	if cached := ev.GetCached(); cached != nil {
		if data, ok := cached.([]byte); ok {
			return data, nil
		}
	}

	data, err := json.Marshal(ev.GetPayload())
	if err != nil {
		return nil, err
	}

	ev.SetCached(data)
	return data, nil
}
