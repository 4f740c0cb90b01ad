package catalog

import (
	"github.com/couchcryptid/psws-hapi/internal/domain"
)

// Parameter describes one HAPI parameter in an info response.
type Parameter struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Units       *string `json:"units"`
	Fill        *string `json:"fill"`
	Length      int     `json:"length,omitempty"`
	Size        []int   `json:"size,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Info is the dataset metadata of a HAPI info response, without the
// version and status envelope.
type Info struct {
	StartDate   string      `json:"startDate"`
	StopDate    string      `json:"stopDate"`
	GeoLocation []float64   `json:"geoLocation"`
	Description string      `json:"description,omitempty"`
	Parameters  []Parameter `json:"parameters"`
}

func ptr(s string) *string { return &s }

var timeParameter = Parameter{
	Name:   domain.TimeParameter,
	Type:   "isotime",
	Units:  ptr("UTC"),
	Length: len(domain.TimestampLayout),
}

var parameterMeta = map[domain.Parameter]Parameter{
	domain.ParamFieldVector: {Type: "double", Units: ptr("nT"), Size: []int{3}, Description: "Magnetic field vector x, y, z"},
	domain.ParamRawVector:   {Type: "double", Units: ptr("counts"), Size: []int{3}, Description: "Raw sensor counts rx, ry, rz"},
	domain.ParamRT:          {Type: "double", Units: ptr("degC"), Description: "Remote sensor temperature"},
	domain.ParamLT:          {Type: "double", Units: ptr("degC"), Description: "Local electronics temperature"},
	domain.ParamTm:          {Type: "double", Units: ptr("nT"), Fill: ptr("-9999999"), Description: "Total field magnitude"},
	domain.ParamFreq:        {Type: "double", Units: ptr("Hz"), Description: "Received carrier frequency"},
	domain.ParamVpk:         {Type: "double", Units: ptr("V"), Description: "Peak received amplitude"},
}

// Info returns the HAPI info for a dataset id. parameters restricts the
// listed parameters the same way a data request does; the time parameter is
// always listed first.
func (c *Catalog) Info(id, parameters string) (Info, error) {
	st, ds, err := c.Lookup(id)
	if err != nil {
		return Info{}, err
	}
	proj, err := domain.ParseParameters(ds.Type, parameters)
	if err != nil {
		return Info{}, err
	}

	info := Info{
		StartDate:   st.Start,
		StopDate:    st.Stop,
		GeoLocation: []float64{st.Lon, st.Lat, st.Elevation},
		Parameters:  []Parameter{timeParameter},
	}
	if info.StopDate == "" {
		info.StopDate = domain.FormatTimestamp(c.clock.Now())
	}
	if st.Nickname != "" {
		info.Description = st.Nickname
	}
	for _, g := range proj.Parameters() {
		p := parameterMeta[g]
		p.Name = string(g)
		info.Parameters = append(info.Parameters, p)
	}
	return info, nil
}
