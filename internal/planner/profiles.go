package planner

// Named profiles. ProfileAudio and ProfileThumbnail bypass dimension
// resolution entirely; ProfileCustom takes explicit width/height from the
// job configuration.
const (
	Profile1080p     = "1080p"
	Profile720p      = "720p"
	Profile480p      = "480p"
	ProfileMobile    = "mobile"
	ProfileCustom    = "custom"
	ProfileAudio     = "audio"
	ProfileThumbnail = "thumbnail"
)

// profileDimensions maps named profiles to target sizes. Mobile is the
// portrait variant.
var profileDimensions = map[string]Dimensions{
	Profile1080p:  {Width: 1920, Height: 1080},
	Profile720p:   {Width: 1280, Height: 720},
	Profile480p:   {Width: 854, Height: 480},
	ProfileMobile: {Width: 720, Height: 1280},
}

// KnownProfile reports whether the profile name is recognized. An empty
// profile is valid and keeps the source resolution.
func KnownProfile(profile string) bool {
	if profile == "" || profile == ProfileCustom || profile == ProfileAudio || profile == ProfileThumbnail {
		return true
	}
	_, ok := profileDimensions[profile]
	return ok
}

// resolveTarget returns the target dimensions for a profile, or nil when the
// source resolution is kept (empty profile, audio extraction, custom without
// explicit dimensions).
func resolveTarget(profile string, width, height int) *Dimensions {
	switch profile {
	case "", ProfileAudio, ProfileThumbnail:
		return nil
	case ProfileCustom:
		if width <= 0 || height <= 0 {
			return nil
		}
		return &Dimensions{Width: width, Height: height}
	}
	if d, ok := profileDimensions[profile]; ok {
		return &Dimensions{Width: d.Width, Height: d.Height}
	}
	return nil
}
