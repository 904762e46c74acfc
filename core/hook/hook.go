package hook

import (
	"context"
	"github.com/jxo-me/talpa/consts"
)

// Event describes one finished dig or plug.
type Event struct {
	Operation string
	Hostname  string
	Service   string
	Target    string
	TunnelID  string
	Status    consts.StatusType
	Err       error
}

type IHook interface {
	String() string
	ExecHook(ctx context.Context, event *Event) error
}
