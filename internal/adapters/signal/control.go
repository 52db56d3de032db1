package signal

import "github.com/dkeye/roomchat/internal/domain"

func (ctl *SignalWSController) handlePing(sid domain.ConnID) {
	ctl.Hub.Send(sid, pong{})
}
