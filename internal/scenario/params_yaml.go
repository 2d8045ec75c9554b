package scenario

import (
	"time"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML decodes on top of DefaultWashParams so omitted rates keep
// their defaults instead of zero.
func (p *WashParams) UnmarshalYAML(value *yaml.Node) error {
	type plain WashParams
	raw := plain(DefaultWashParams("", time.Time{}))
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*p = WashParams(raw)
	return nil
}

// UnmarshalYAML decodes on top of DefaultPumpDumpParams.
func (p *PumpDumpParams) UnmarshalYAML(value *yaml.Node) error {
	type plain PumpDumpParams
	raw := plain(DefaultPumpDumpParams("", time.Time{}))
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*p = PumpDumpParams(raw)
	return nil
}
