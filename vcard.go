package jevent

import (
	"fmt"

	"github.com/emersion/go-vcard"
)

// ParticipantFromCard builds a participant from an address-book entry. The
// card must carry at least one email address; the first one wins. The new
// participant has the attendee role.
func ParticipantFromCard(card vcard.Card) (*Participant, error) {
	email := card.Value(vcard.FieldEmail)
	if email == "" {
		return nil, fmt.Errorf("jevent: vcard has no email address")
	}
	p := &Participant{
		Email: CanonicalEmail(email),
		Roles: []Role{RoleAttendee},
	}
	if name := card.Value(vcard.FieldFormattedName); name != "" {
		p.Name = &name
	}
	switch vcard.Kind(card.Value(vcard.FieldKind)) {
	case vcard.KindIndividual:
		k := KindIndividual
		p.Kind = &k
	case vcard.KindGroup:
		k := KindGroup
		p.Kind = &k
	case vcard.KindLocation:
		k := KindLocation
		p.Kind = &k
	case vcard.KindOrganization:
		k := KindResource
		p.Kind = &k
	}
	return p, nil
}

// Card exports the participant as a vCard.
func (p *Participant) Card() vcard.Card {
	card := make(vcard.Card)
	card.SetValue(vcard.FieldEmail, p.Email)
	if p.Name != nil {
		card.SetValue(vcard.FieldFormattedName, *p.Name)
	}
	if p.Kind != nil {
		switch *p.Kind {
		case KindIndividual:
			card.SetValue(vcard.FieldKind, string(vcard.KindIndividual))
		case KindGroup:
			card.SetValue(vcard.FieldKind, string(vcard.KindGroup))
		case KindLocation:
			card.SetValue(vcard.FieldKind, string(vcard.KindLocation))
		case KindResource:
			card.SetValue(vcard.FieldKind, string(vcard.KindOrganization))
		}
	}
	vcard.ToV4(card)
	return card
}
