package handler

import (
	"fairdraw/internal/replay"
)

// IndividualResponse reports the chain and replay checks alongside the
// individual's status, which always comes from the replayed draw.
type IndividualResponse struct {
	ChainOK  bool     `json:"chainOk"`
	ReplayOK bool     `json:"replayOk"`
	Reasons  []string `json:"reasons"`
	replay.IndividualResult
}

func toIndividualResponse(res *replay.Result, individual replay.IndividualResult) IndividualResponse {
	return IndividualResponse{
		ChainOK:          res.ChainOK,
		ReplayOK:         res.ReplayOK,
		Reasons:          res.Reasons,
		IndividualResult: individual,
	}
}
