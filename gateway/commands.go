package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/scottjudy/deepcell-label/project"
)

// Command is one inbound websocket frame: an event type plus its payload
type Command struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// dispatch routes one client command into the project. Unknown types and
// undecodable payloads are reported back to the caller; the project
// machines apply their own guards beyond that.
func (s *Server) dispatch(cmd Command) error {
	p := s.project

	switch cmd.Type {
	// raw canvas interaction
	case project.EventMouseDown, project.EventMouseMove:
		var cursor project.Cursor
		if err := decode(cmd, &cursor); err != nil {
			return err
		}
		p.Input(cmd.Type, cursor)
	case project.EventMouseUp:
		// mouse up carries no data; the canvas works from tracked state
		p.Input(cmd.Type, nil)
	case project.EventWheel:
		var wheel project.Wheel
		if err := decode(cmd, &wheel); err != nil {
			return err
		}
		p.Input(cmd.Type, wheel)
	case project.EventKeyDown, project.EventKeyUp:
		var key project.Key
		if err := decode(cmd, &key); err != nil {
			return err
		}
		p.Input(cmd.Type, key)
	case project.EventSetPanOnDrag:
		var mode project.SetPanOnDrag
		if err := decode(cmd, &mode); err != nil {
			return err
		}
		p.Input(cmd.Type, mode)
	case project.EventAvailableSpace:
		var space project.AvailableSpace
		if err := decode(cmd, &space); err != nil {
			return err
		}
		p.Input(cmd.Type, space)

	// image navigation
	case project.EventSetFrame, project.EventSetFeature, project.EventSetChannel:
		var set project.SetIndex
		if err := decode(cmd, &set); err != nil {
			return err
		}
		p.Dispatch(p.Image.ID(), cmd.Type, set)

	// display adjustments
	case project.EventSetBrightness, project.EventSetContrast:
		var level project.SetLevel
		if err := decode(cmd, &level); err != nil {
			return err
		}
		p.Dispatch(p.Raw.ID(), cmd.Type, level)
	case project.EventToggleInvert:
		p.Dispatch(p.Raw.ID(), cmd.Type, nil)
	case project.EventSetOpacity:
		var level project.SetLevel
		if err := decode(cmd, &level); err != nil {
			return err
		}
		p.Dispatch(p.Labeled.ID(), cmd.Type, level)
	case project.EventToggleOutline, project.EventToggleHighlight:
		p.Dispatch(p.Labeled.ID(), cmd.Type, nil)

	// selection
	case project.EventSetForeground, project.EventSetBackground:
		var set project.SetCell
		if err := decode(cmd, &set); err != nil {
			return err
		}
		p.Dispatch(p.Select.ID(), cmd.Type, set)
	case project.EventSwitchSelection, project.EventResetSelection, project.EventNewForeground:
		p.Dispatch(p.Select.ID(), cmd.Type, nil)

	// tools
	case project.EventSetTool:
		var set project.SetTool
		if err := decode(cmd, &set); err != nil {
			return err
		}
		p.Dispatch(p.Tools.ID(), cmd.Type, set)
	case project.EventSetBrushSize:
		var set project.SetIndex
		if err := decode(cmd, &set); err != nil {
			return err
		}
		p.Dispatch(p.Brush.ID(), cmd.Type, set)
	case project.EventToggleErase:
		p.Dispatch(p.Brush.ID(), cmd.Type, nil)

	// spots
	case project.EventSetSpotsVisible:
		var set project.SetVisible
		if err := decode(cmd, &set); err != nil {
			return err
		}
		p.Dispatch(p.Spots.ID(), cmd.Type, set)

	// local cell edits
	case project.EventDeleteCell:
		var edit project.CellEdit
		if err := decode(cmd, &edit); err != nil {
			return err
		}
		p.DeleteCell(edit.Cell)
	case project.EventSwapCells:
		var edit project.CellPairEdit
		if err := decode(cmd, &edit); err != nil {
			return err
		}
		p.SwapCells(edit.A, edit.B)
	case project.EventReplaceCells:
		var edit project.CellPairEdit
		if err := decode(cmd, &edit); err != nil {
			return err
		}
		p.ReplaceCells(edit.A, edit.B)
	case project.EventNewCell:
		var edit project.NewCell
		if err := decode(cmd, &edit); err != nil {
			return err
		}
		p.CreateCell(edit.Value, edit.Feature, edit.Frame)
	case project.EventAddDaughter:
		var edit project.DaughterEdit
		if err := decode(cmd, &edit); err != nil {
			return err
		}
		p.AddDaughter(edit.Parent, edit.Daughter, edit.Frame)
	case project.EventRemoveDaughter:
		var edit project.DaughterEdit
		if err := decode(cmd, &edit); err != nil {
			return err
		}
		p.RemoveDaughter(edit.Daughter)

	// service requests
	case "EDIT":
		var edit struct {
			Action string            `json:"action"`
			Args   map[string]string `json:"args"`
		}
		if err := decode(cmd, &edit); err != nil {
			return err
		}
		p.Edit(edit.Action, edit.Args)
	case "UNDO":
		p.UndoEdit()
	case "REDO":
		p.RedoEdit()
	case "UPLOAD":
		var upload struct {
			Bucket string `json:"bucket"`
		}
		if err := decode(cmd, &upload); err != nil {
			return err
		}
		if upload.Bucket == "" {
			upload.Bucket = s.defaultBucket
		}
		p.Upload(upload.Bucket)

	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
	return nil
}

func decode(cmd Command, dst any) error {
	if len(cmd.Payload) == 0 {
		return fmt.Errorf("command %q requires a payload", cmd.Type)
	}
	if err := json.Unmarshal(cmd.Payload, dst); err != nil {
		return fmt.Errorf("command %q: %w", cmd.Type, err)
	}
	return nil
}
