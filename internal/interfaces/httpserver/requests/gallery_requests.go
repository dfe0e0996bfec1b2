package requests

import (
	"gallery-server/internal/domain/media"
)

// UpdateDetailsRequest carries the editable descriptive fields. Absent
// fields stay untouched; storage fields are not part of this surface.
type UpdateDetailsRequest struct {
	Password     string   `json:"password"`
	Name         *string  `json:"name"`
	Location     *string  `json:"location"`
	Tags         []string `json:"tags"`
	Photographer *string  `json:"photographer"`
	Date         *string  `json:"date"`
}

// ToDomain converts request to domain model
func (r *UpdateDetailsRequest) ToDomain() media.DetailUpdate {
	return media.DetailUpdate{
		Name:         r.Name,
		Location:     r.Location,
		Tags:         r.Tags,
		Photographer: r.Photographer,
		Date:         r.Date,
	}
}

// DeleteRequest carries the shared secret for a delete call. The password
// may also arrive via the X-Gallery-Password header.
type DeleteRequest struct {
	Password string `json:"password"`
}
