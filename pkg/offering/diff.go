package offering

// AttachmentRef identifies one persisted attachment in a client delete list.
// Clients send the full row back but only the id matters.
type AttachmentRef struct {
	ID string `json:"id"`
}

const pictureMinimumMessage = "Please upload one or more pictures."

// SurvivingCount returns how many of the existing attachment ids remain after
// applying the delete list. Ids are matched as a set, so duplicates in the
// delete list and ids that don't belong to the offering have no extra effect.
func SurvivingCount(existingIDs []string, toDelete []AttachmentRef) int {
	deleted := make(map[string]struct{}, len(toDelete))
	for _, ref := range toDelete {
		deleted[ref.ID] = struct{}{}
	}
	surviving := 0
	for _, id := range existingIDs {
		if _, ok := deleted[id]; !ok {
			surviving++
		}
	}
	return surviving
}

// CheckPictureMinimum enforces the one-picture floor: an offering may never
// end up with zero pictures. Documents carry no equivalent rule.
func CheckPictureMinimum(surviving, added int) error {
	if added > 0 || surviving > 0 {
		return nil
	}
	verr := &ValidationError{}
	verr.Add("pictures", KeywordBusiness, pictureMinimumMessage)
	return verr
}
