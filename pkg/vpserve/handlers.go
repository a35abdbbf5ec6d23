package vpserve

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vplabeler/core/pkg/labeler"
	"github.com/vplabeler/core/pkg/vpmodel"
	"github.com/vplabeler/core/pkg/vprecord"
)

// handleHealth reports whether a compiled model is reachable.
func (s *Server) handleHealth(c *gin.Context) {
	if _, err := s.currentModel(); err != nil {
		respondAPIError(c, ErrModelUnavailable)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

// handleLabel implements POST /v1/label: body is one LabelerInput, response
// is one LabelerOutput, run against today's cached compiled model.
func (s *Server) handleLabel(c *gin.Context) {
	var input vprecord.LabelerInput
	if err := bindJSON(c, &input); err != nil {
		return
	}

	model, err := s.currentModel()
	if err != nil {
		respondAPIError(c, ErrModelUnavailable)
		return
	}

	out, err := model.Label(input)
	if err != nil {
		s.logger.Error("label failed", "request_id", getRequestID(c), "error", err)
		respondAPIError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, out)
}

// batchRequest is the wire shape for POST /v1/label:batch: a node-list
// compiled tree plus the inputs to run through it.
type batchRequest struct {
	Nodes  []vpmodel.CompiledNode  `json:"nodes"`
	Inputs []vprecord.LabelerInput `json:"inputs"`
}

type batchResponse struct {
	Outputs []labeler.LabelerOutput `json:"outputs"`
}

// handleLabelBatch implements POST /v1/label:batch: the caller supplies its
// own node-list tree (rather than relying on the server's cached model) and
// gets back one output per input, in order.
func (s *Server) handleLabelBatch(c *gin.Context) {
	var req batchRequest
	if err := bindJSON(c, &req); err != nil {
		return
	}

	if len(req.Nodes) == 0 || len(req.Inputs) == 0 {
		respondAPIError(c, ErrInvalidBatchInput)
		return
	}

	l, err := labeler.BuildFromList(req.Nodes)
	if err != nil {
		respondAPIError(c, err)
		return
	}

	outputs := make([]labeler.LabelerOutput, len(req.Inputs))
	for i, in := range req.Inputs {
		out, err := l.Label(in)
		if err != nil {
			s.logger.Error("batch label failed", "request_id", getRequestID(c), "index", i, "error", err)
			respondAPIError(c, err)
			return
		}
		outputs[i] = out
	}

	respondJSON(c, http.StatusOK, batchResponse{Outputs: outputs})
}
