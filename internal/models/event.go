package models

import "encoding/json"

// Event is one ceremony shown on the invitation page
type Event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Time        string `json:"time"`
	Venue       string `json:"venue"`
	Address     string `json:"address"`
	MapLink     string `json:"mapLink"`
	Description string `json:"description"`
	Side        Side   `json:"side,omitempty"`
}

// EventConfig is the typed view of wedding-config.json. The stored document
// is kept as saved; this type only describes the default and the known keys.
type EventConfig struct {
	Events []Event `json:"events"`
}

// ForSide keeps the events of a stored configuration document that are
// visible to guests of the given side. Events without a side are shown to
// everyone. Keys the Event type does not know about are kept as they are, and
// a document without an events list is returned unchanged.
func ForSide(doc json.RawMessage, side Side) (json.RawMessage, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(doc, &top); err != nil {
		return doc, nil
	}
	var events []json.RawMessage
	if err := json.Unmarshal(top["events"], &events); err != nil || events == nil {
		return doc, nil
	}

	kept := make([]json.RawMessage, 0, len(events))
	for _, raw := range events {
		var e struct {
			Side any `json:"side"`
		}
		// events that are not objects carry no side
		_ = json.Unmarshal(raw, &e)

		switch v := e.Side.(type) {
		case nil:
			kept = append(kept, raw)
		case string:
			if v == "" || Side(v) == side {
				kept = append(kept, raw)
			}
		}
	}

	filtered, err := json.Marshal(kept)
	if err != nil {
		return nil, err
	}
	top["events"] = filtered
	return json.Marshal(top)
}

// DefaultEventConfig is served until an admin saves a configuration
func DefaultEventConfig() EventConfig {
	return EventConfig{
		Events: []Event{
			{
				ID:          "akad",
				Title:       "Akad Nikah",
				Time:        "07.00 WIB",
				Venue:       "Gedung Sasanagita",
				Address:     "Tejosari, Parakan, Temanggung",
				MapLink:     "https://maps.app.goo.gl/9yTCxro8usPdSFB36?g_st=ic",
				Description: "Acara akad nikah akan dilaksanakan di Gedung Sasanagita",
				Side:        SideFemale,
			},
			{
				ID:          "resepsi",
				Title:       "Resepsi",
				Time:        "10.00 WIB",
				Venue:       "Gedung Sasanagita",
				Address:     "Tejosari, Parakan, Temanggung",
				MapLink:     "https://maps.app.goo.gl/9yTCxro8usPdSFB36?g_st=ic",
				Description: "Acara resepsi akan dilaksanakan di Gedung Sasanagita",
				Side:        SideFemale,
			},
			{
				ID:          "ngunduh",
				Title:       "Ngunduh Mantu",
				Time:        "Menunggu Konfirmasi",
				Venue:       "Kediaman Mempelai Pria",
				Address:     "Lokasi Pihak Pria",
				MapLink:     "#",
				Description: "Informasi lokasi dan waktu akan menyusul.",
				Side:        SideMale,
			},
		},
	}
}
