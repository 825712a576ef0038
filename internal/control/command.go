// Package control turns lease decisions into commands for physical
// resources: door locks and power for rooms, ignition for vehicles.
package control

import (
	"fmt"

	"go-leasegate/internal/apperr"
	"go-leasegate/internal/models"
)

const (
	ActionAccess      = "access"
	ActionElectricity = "electricity"
	ActionIgnition    = "ignition"
)

// Command is the body of a control request, addressed by public numbers.
type Command struct {
	AssetNumber    string `json:"-"`
	SubAssetNumber string `json:"-"`
	ActionType     string `json:"action_type"`
	Data           string `json:"data"`
	UpdateStatus   bool   `json:"update_status"`
}

func (c Command) String() string {
	return fmt.Sprintf("%s/%s %s=%s", c.AssetNumber, c.SubAssetNumber, c.ActionType, c.Data)
}

// ActivateCommand opens the door of a room or enables a vehicle's ignition.
func ActivateCommand(assetNumber string, ref models.ResourceRef) Command {
	if ref.Kind == models.KindVehicle {
		return Command{AssetNumber: assetNumber, SubAssetNumber: ref.Number, ActionType: ActionIgnition, Data: "on"}
	}
	return Command{AssetNumber: assetNumber, SubAssetNumber: ref.Number, ActionType: ActionAccess, Data: "unlock"}
}

// RevokeCommand is the inverse of ActivateCommand.
func RevokeCommand(assetNumber string, ref models.ResourceRef) Command {
	if ref.Kind == models.KindVehicle {
		return Command{AssetNumber: assetNumber, SubAssetNumber: ref.Number, ActionType: ActionIgnition, Data: "off"}
	}
	return Command{AssetNumber: assetNumber, SubAssetNumber: ref.Number, ActionType: ActionAccess, Data: "lock"}
}

// Topic returns the retained MQTT topic a command is published on. Rooms
// accept access and electricity; vehicles accept ignition only.
func Topic(kind models.ResourceKind, assetNumber, subAssetNumber, action string) (string, error) {
	switch kind {
	case models.KindRoom:
		if action == ActionAccess || action == ActionElectricity {
			return fmt.Sprintf("rooms/%s/%s/%s", assetNumber, subAssetNumber, action), nil
		}
	case models.KindVehicle:
		if action == ActionIgnition {
			return fmt.Sprintf("vehicles/%s/%s/%s", assetNumber, subAssetNumber, action), nil
		}
	}
	return "", fmt.Errorf("invalid action type %q for %s: %w", action, kind, apperr.ErrValidation)
}
