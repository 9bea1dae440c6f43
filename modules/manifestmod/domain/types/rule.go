package types

import "time"

type ModType string

const (
	ModTypeOwner     ModType = "owner"
	ModTypeUUID      ModType = "uuid"
	ModTypeSite      ModType = "site"
	ModTypeOSVersion ModType = "os_version"
	ModTypeTag       ModType = "tag"
)

func (m ModType) Valid() bool {
	switch m {
	case ModTypeOwner, ModTypeUUID, ModTypeSite, ModTypeOSVersion, ModTypeTag:
		return true
	default:
		return false
	}
}

// DefaultInstallType is the bucket a rule applies to when InstallTypes
// is empty.
const DefaultInstallType = "managed_installs"

var KnownInstallTypes = []string{
	"managed_installs",
	"managed_uninstalls",
	"managed_updates",
	"optional_installs",
}

func KnownInstallType(name string) bool {
	for _, t := range KnownInstallTypes {
		if t == name {
			return true
		}
	}
	return false
}

// Rule is one persisted manifest modification. InstallTypes empty means
// the default bucket only; ManifestScope empty means all manifests.
type Rule struct {
	Key                string
	ModType            ModType
	Target             string
	PackageName        string
	PackageDisplayName string
	Removal            bool
	InstallTypes       []string
	ManifestScope      []string
	Enabled            bool
	CreatedBy          string
	ModifiedAt         time.Time
	Version            int64
}

// ClientContext carries the requesting client's identity attributes.
// It is caller-supplied and never persisted.
type ClientContext struct {
	Owner     string
	UUID      string
	Site      string
	OSVersion string
	Tags      []string
}
