// Package labeler implements the public façade: derive fingerprints from a
// LabelerInput, drive the compiled tree's root node, and project the
// resulting virtual-person activities into a LabelerOutput.
package labeler

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/vplabeler/core/pkg/fingerprint"
	"github.com/vplabeler/core/pkg/vpmodel"
	"github.com/vplabeler/core/pkg/vprecord"
)

// Person is one output virtual-person activity.
type Person struct {
	VirtualPersonID int64
	Label           vprecord.Fields
}

// LabelerOutput is the public output contract: one entry per virtual-person
// activity produced by a Label call.
type LabelerOutput struct {
	People []Person
}

// Labeler owns one immutable compiled tree; Label is safe to call
// concurrently from multiple goroutines since every call operates on a
// freshly constructed scratch event.
type Labeler struct {
	root vpmodel.Node
}

// Build assembles a labeler from a single-root compiled tree.
func Build(root vpmodel.CompiledNode) (*Labeler, error) {
	node, err := vpmodel.BuildFromRoot(root)
	if err != nil {
		return nil, err
	}
	return &Labeler{root: node}, nil
}

// BuildFromList assembles a labeler from a topologically-sorted node list.
func BuildFromList(nodes []vpmodel.CompiledNode) (*Labeler, error) {
	node, err := vpmodel.BuildFromList(nodes)
	if err != nil {
		return nil, err
	}
	return &Labeler{root: node}, nil
}

// Label derives fingerprints from input, runs the tree, and projects the
// resulting activities into a LabelerOutput. Either the full output is
// valid or err is non-nil with no output: there are no partial results.
func (l *Labeler) Label(input vprecord.LabelerInput) (LabelerOutput, error) {
	event := vprecord.NewEvent(input)
	deriveFingerprints(event, input)

	if err := l.root.Apply(event); err != nil {
		return LabelerOutput{}, err
	}

	people := make([]Person, len(event.VirtualPersonActivities))
	for i, a := range event.VirtualPersonActivities {
		people[i] = Person{VirtualPersonID: a.VirtualPersonID, Label: a.Label}
	}
	return LabelerOutput{People: people}, nil
}

// deriveFingerprints computes the pre-root fingerprints: the event id's
// fingerprint becomes the tree's acting fingerprint, and each profile_info
// user id gets its own fingerprint recorded for downstream filters/updaters
// to address by field path.
func deriveFingerprints(event *vprecord.Event, input vprecord.LabelerInput) {
	if input.EventID != nil && input.EventID.ID != "" {
		idFp := fingerprint.FingerprintString(input.EventID.ID)
		input.EventID.IDFingerprint = idFp
		event.ActingFingerprint = idFp
		event.Fields["event_id"] = vprecord.Fields{"id": input.EventID.ID, "id_fingerprint": idFp}
	}

	if len(input.ProfileInfo) > 0 {
		profile := make(vprecord.Fields, len(input.ProfileInfo))
		for space, user := range input.ProfileInfo {
			if user.UserID == "" {
				continue
			}
			userFp := fingerprint.FingerprintString(user.UserID)
			user.UserIDFingerprint = userFp
			input.ProfileInfo[space] = user
			profile[space] = vprecord.Fields{"user_id": user.UserID, "user_id_fingerprint": userFp}
		}
		event.Fields["profile_info"] = profile
	}
}

// BatchRequest is the batch wrapper request: one compiled tree applied to
// many inputs.
type BatchRequest struct {
	Root   vpmodel.CompiledNode
	Inputs []vprecord.LabelerInput
}

// BatchOutputs runs every input through a freshly built labeler for Root
// and returns one output per input, in order. LabelerOutput carries no
// debug-trace field, so there is nothing to clear; this wrapper exists to
// mirror a batch entry point built once and applied to many inputs.
func BatchOutputs(req BatchRequest) ([]LabelerOutput, error) {
	requestID := uuid.New().String()

	l, err := Build(req.Root)
	if err != nil {
		return nil, fmt.Errorf("batch %s: build: %w", requestID, err)
	}

	outputs := make([]LabelerOutput, len(req.Inputs))
	for i, in := range req.Inputs {
		out, err := l.Label(in)
		if err != nil {
			return nil, fmt.Errorf("batch %s: input %d: %w", requestID, i, err)
		}
		outputs[i] = out
	}
	return outputs, nil
}
