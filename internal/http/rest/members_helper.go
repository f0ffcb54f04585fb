package rest

import (
	"context"
	"errors"
	"time"

	"github.com/planetcalm/petmap/internal/model"
	"github.com/planetcalm/petmap/util"
	"github.com/planetcalm/petmap/util/values"
	"github.com/planetcalm/petmap/util/websockets"
)

const crmForwardTimeout = 10 * time.Second

// CreateMemberHelper validates and persists a pin. The formatted display
// string is always recomputed from the location fields before the write.
func (api *API) CreateMemberHelper(ctx context.Context, member model.Member) (model.Member, string, string, error) {
	member.Location.Formatted = member.Location.Format()

	if err := util.ValidateStruct(member); err != nil {
		return model.Member{}, values.BadRequestBody, "Validation failed", err
	}

	created, err := api.Members.CreateMember(ctx, member)
	if err != nil {
		if errors.Is(err, ErrDuplicateMember) {
			return model.Member{}, values.Conflict, "This entry may already exist.", err
		}
		return model.Member{}, values.Error, "Error creating member", err
	}

	return created, values.Created, "Member created successfully", nil
}

// afterCreate runs the post-persistence fan-out: the real-time broadcast
// and the best-effort CRM forward. Neither may fail the request that
// triggered them; errors are logged and dropped here.
func (api *API) afterCreate(member model.Member) {
	api.Broadcast.BroadcastNewPin(websockets.NewPinEvent{
		ID:        member.ID,
		PetName:   member.PetName,
		PetType:   member.PetType,
		PetStatus: member.PetStatus,
		Location:  member.Location,
		Coordinates: model.Coordinates{
			Lat: member.Latitude,
			Lng: member.Longitude,
		},
		CreatedAt: member.CreatedAt,
	})

	ctx, cancel := context.WithTimeout(context.Background(), crmForwardTimeout)
	count, err := api.Members.CountMembers(ctx)
	if err != nil {
		api.Log.Error().Err(err).Msg("failed to refresh member count for broadcast")
	} else {
		api.Broadcast.BroadcastMemberCount(count)
	}
	cancel()

	go func(m model.Member) {
		fctx, fcancel := context.WithTimeout(context.Background(), crmForwardTimeout)
		defer fcancel()
		if err := api.CRM.ForwardMember(fctx, m); err != nil {
			api.Log.Error().Err(err).Str("pet_name", m.PetName).Msg("CRM forward failed")
		}
	}(member)
}
