package repo

import "time"

type Attachment struct {
	FileURL    string    `json:"fileUrl"`
	FileName   string    `json:"fileName"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Work holds what every configurable work item carries.
type Work struct {
	Enabled             *bool        `json:"enabled,omitempty"`
	Teeth               []string     `json:"teeth,omitempty"`
	Shade               string       `json:"shade,omitempty"`
	SpecialInstructions string       `json:"specialInstructions,omitempty"`
	Attachments         []Attachment `json:"attachments,omitempty"`
}

type UpperLower struct {
	Upper *bool `json:"upper,omitempty"`
	Lower *bool `json:"lower,omitempty"`
}

type PFMCrown struct {
	Work
	PorcelainButtMargin string `json:"porcelainButtMargin,omitempty"`
}

type Bridge struct {
	Work
	PonticDesign string   `json:"ponticDesign,omitempty"`
	PonticTeeth  []string `json:"ponticTeeth,omitempty"`
	WingTeeth    []string `json:"wingTeeth,omitempty"`
}

type PFM struct {
	SingleUnitCrown    *PFMCrown `json:"singleUnitCrown,omitempty"`
	MarylandBridge     *Bridge   `json:"marylandBridge,omitempty"`
	ConventionalBridge *Bridge   `json:"conventionalBridge,omitempty"`
}

type FullCast struct {
	MaterialType       string  `json:"materialType,omitempty"`
	SingleUnitCrown    *Work   `json:"singleUnitCrown,omitempty"`
	Bridge             *Work   `json:"bridge,omitempty"`
	PostAndCore        *Work   `json:"postAndCore,omitempty"`
	ConventionalBridge *Bridge `json:"conventionalBridge,omitempty"`
}

// TypedWork is a work item with a sub-type and optional 2D/3D shades.
type TypedWork struct {
	Work
	Type    string `json:"type,omitempty"`
	Shade2D string `json:"shade2D,omitempty"`
	Shade3D string `json:"shade3D,omitempty"`
}

type DentureConstruction struct {
	Work
	SelectedOptions         []string    `json:"selectedOptions,omitempty"`
	BiteBlock               *UpperLower `json:"biteBlock,omitempty"`
	SpecialTray             *UpperLower `json:"specialTray,omitempty"`
	Clasps                  *int        `json:"clasps,omitempty"`
	MeshReinforcement       *bool       `json:"meshReinforcement,omitempty"`
	TryIn                   *bool       `json:"tryIn,omitempty"`
	TryInMetalFrameworkCoCr *bool       `json:"tryInMetalFrameworkCoCr,omitempty"`
	ReTryIn                 *bool       `json:"reTryIn,omitempty"`
	Finish                  *bool       `json:"finish,omitempty"`
	FinishAcrylic           *bool       `json:"finishAcrylic,omitempty"`
	FinishFlexi             *bool       `json:"finishFlexi,omitempty"`
	TeethSelection          []string    `json:"teethSelection,omitempty"`
}

type DentureOther struct {
	Work
	SelectedOptions []string `json:"selectedOptions,omitempty"`
	TeethSelection  []string `json:"teethSelection,omitempty"`
}

type Dentures struct {
	CategoryType string               `json:"categoryType,omitempty"`
	Construction *DentureConstruction `json:"construction,omitempty"`
	Other        *DentureOther        `json:"other,omitempty"`
}

type StandardCrownBridge struct {
	PFM       *PFM       `json:"pfm,omitempty"`
	FullCast  *FullCast  `json:"fullCast,omitempty"`
	MetalFree *TypedWork `json:"metalFree,omitempty"`
	Dentures  *Dentures  `json:"dentures,omitempty"`
}

// StandardTier keys keep the capitalised names clients already send.
type StandardTier struct {
	CrownBridge *StandardCrownBridge `json:"CrownBridge,omitempty"`
	Dentures    *Dentures            `json:"Dentures,omitempty"`
	Misc        *bool                `json:"Misc,omitempty"`
}

type PremiumCrownBridge struct {
	SubCategory string     `json:"subCategory,omitempty"`
	Emax        *TypedWork `json:"emax,omitempty"`
	Zirconia    *TypedWork `json:"zirconia,omitempty"`
	MetalFree   *Work      `json:"metalFree,omitempty"`
}

type Implants struct {
	Work
	AsStandard       *bool `json:"asStandard,omitempty"`
	NoPostCoreOption *bool `json:"noPostCoreOption,omitempty"`
}

type Orthodontic struct {
	Work
	Type string `json:"type,omitempty"`
}

type StudyModels struct {
	DiagnosticWax *bool    `json:"diagnosticWax,omitempty"`
	SelectedTeeth []string `json:"selectedTeeth,omitempty"`
}

type SportsGuard struct {
	Colour string `json:"colour,omitempty"`
}

type TW struct {
	WithReservoirs    *bool `json:"withReservoirs,omitempty"`
	WithoutReservoirs *bool `json:"withoutReservoirs,omitempty"`
}

type NightGuard struct {
	Material         string `json:"material,omitempty"`
	WithReservoir    *bool  `json:"withReservoir,omitempty"`
	WithoutReservoir *bool  `json:"withoutReservoir,omitempty"`
}

type PremiumMisc struct {
	Work
	Type        string       `json:"type,omitempty"`
	StudyModels *StudyModels `json:"studyModels,omitempty"`
	SportsGuard *SportsGuard `json:"sportsGuard,omitempty"`
	TW          *TW          `json:"tw,omitempty"`
	NightGuard  *NightGuard  `json:"nightGuard,omitempty"`
}

type PremiumTier struct {
	CrownBridge *PremiumCrownBridge `json:"crownBridge,omitempty"`
	Dentures    *Dentures           `json:"dentures,omitempty"`
	Implants    *Implants           `json:"implants,omitempty"`
	Orthodontic *Orthodontic        `json:"orthodontic,omitempty"`
	Misc        *PremiumMisc        `json:"misc,omitempty"`
}
