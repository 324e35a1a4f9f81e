package cases

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
)

// DecodeTier reads a tier tree that may arrive either as a JSON object or
// as a JSON string holding the object (multipart form fields). Empty input
// and null decode to nil.
func DecodeTier[T any](raw []byte) (*T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return DecodeTier[T]([]byte(s))
	}
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}

func setStr(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func setPtr[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

func setSlice[T any](dst *[]T, src []T) {
	if src != nil {
		*dst = slices.Clone(src)
	}
}

// mergeInto overlays src on *dst with fn, allocating *dst when absent.
func mergeInto[T any](dst **T, src *T, fn func(dst, src *T)) {
	if src == nil {
		return
	}
	if *dst == nil {
		*dst = new(T)
	}
	fn(*dst, src)
}

func mergeWork(dst, src *repo.Work) {
	setPtr(&dst.Enabled, src.Enabled)
	setSlice(&dst.Teeth, src.Teeth)
	setStr(&dst.Shade, src.Shade)
	setStr(&dst.SpecialInstructions, src.SpecialInstructions)
	setSlice(&dst.Attachments, src.Attachments)
}

func mergeUpperLower(dst, src *repo.UpperLower) {
	setPtr(&dst.Upper, src.Upper)
	setPtr(&dst.Lower, src.Lower)
}

func mergePFMCrown(dst, src *repo.PFMCrown) {
	mergeWork(&dst.Work, &src.Work)
	setStr(&dst.PorcelainButtMargin, src.PorcelainButtMargin)
}

func mergeBridge(dst, src *repo.Bridge) {
	mergeWork(&dst.Work, &src.Work)
	setStr(&dst.PonticDesign, src.PonticDesign)
	setSlice(&dst.PonticTeeth, src.PonticTeeth)
	setSlice(&dst.WingTeeth, src.WingTeeth)
}

func mergeTypedWork(dst, src *repo.TypedWork) {
	mergeWork(&dst.Work, &src.Work)
	setStr(&dst.Type, src.Type)
	setStr(&dst.Shade2D, src.Shade2D)
	setStr(&dst.Shade3D, src.Shade3D)
}

func mergeDentures(dst, src *repo.Dentures) {
	setStr(&dst.CategoryType, src.CategoryType)
	mergeInto(&dst.Construction, src.Construction, func(d, s *repo.DentureConstruction) {
		mergeWork(&d.Work, &s.Work)
		setSlice(&d.SelectedOptions, s.SelectedOptions)
		mergeInto(&d.BiteBlock, s.BiteBlock, mergeUpperLower)
		mergeInto(&d.SpecialTray, s.SpecialTray, mergeUpperLower)
		setPtr(&d.Clasps, s.Clasps)
		setPtr(&d.MeshReinforcement, s.MeshReinforcement)
		setPtr(&d.TryIn, s.TryIn)
		setPtr(&d.TryInMetalFrameworkCoCr, s.TryInMetalFrameworkCoCr)
		setPtr(&d.ReTryIn, s.ReTryIn)
		setPtr(&d.Finish, s.Finish)
		setPtr(&d.FinishAcrylic, s.FinishAcrylic)
		setPtr(&d.FinishFlexi, s.FinishFlexi)
		setSlice(&d.TeethSelection, s.TeethSelection)
	})
	mergeInto(&dst.Other, src.Other, func(d, s *repo.DentureOther) {
		mergeWork(&d.Work, &s.Work)
		setSlice(&d.SelectedOptions, s.SelectedOptions)
		setSlice(&d.TeethSelection, s.TeethSelection)
	})
}

// MergeStandard overlays the fields present in patch onto base. Absent
// fields keep their stored value; lists are replaced, not appended.
func MergeStandard(base, patch *repo.StandardTier) *repo.StandardTier {
	mergeInto(&base, patch, func(dst, src *repo.StandardTier) {
		mergeInto(&dst.CrownBridge, src.CrownBridge, func(d, s *repo.StandardCrownBridge) {
			mergeInto(&d.PFM, s.PFM, func(d, s *repo.PFM) {
				mergeInto(&d.SingleUnitCrown, s.SingleUnitCrown, mergePFMCrown)
				mergeInto(&d.MarylandBridge, s.MarylandBridge, mergeBridge)
				mergeInto(&d.ConventionalBridge, s.ConventionalBridge, mergeBridge)
			})
			mergeInto(&d.FullCast, s.FullCast, func(d, s *repo.FullCast) {
				setStr(&d.MaterialType, s.MaterialType)
				mergeInto(&d.SingleUnitCrown, s.SingleUnitCrown, mergeWork)
				mergeInto(&d.Bridge, s.Bridge, mergeWork)
				mergeInto(&d.PostAndCore, s.PostAndCore, mergeWork)
				mergeInto(&d.ConventionalBridge, s.ConventionalBridge, mergeBridge)
			})
			mergeInto(&d.MetalFree, s.MetalFree, mergeTypedWork)
			mergeInto(&d.Dentures, s.Dentures, mergeDentures)
		})
		mergeInto(&dst.Dentures, src.Dentures, mergeDentures)
		setPtr(&dst.Misc, src.Misc)
	})
	return base
}

// MergePremium is MergeStandard for the premium tree.
func MergePremium(base, patch *repo.PremiumTier) *repo.PremiumTier {
	mergeInto(&base, patch, func(dst, src *repo.PremiumTier) {
		mergeInto(&dst.CrownBridge, src.CrownBridge, func(d, s *repo.PremiumCrownBridge) {
			setStr(&d.SubCategory, s.SubCategory)
			mergeInto(&d.Emax, s.Emax, mergeTypedWork)
			mergeInto(&d.Zirconia, s.Zirconia, mergeTypedWork)
			mergeInto(&d.MetalFree, s.MetalFree, mergeWork)
		})
		mergeInto(&dst.Dentures, src.Dentures, mergeDentures)
		mergeInto(&dst.Implants, src.Implants, func(d, s *repo.Implants) {
			mergeWork(&d.Work, &s.Work)
			setPtr(&d.AsStandard, s.AsStandard)
			setPtr(&d.NoPostCoreOption, s.NoPostCoreOption)
		})
		mergeInto(&dst.Orthodontic, src.Orthodontic, func(d, s *repo.Orthodontic) {
			mergeWork(&d.Work, &s.Work)
			setStr(&d.Type, s.Type)
		})
		mergeInto(&dst.Misc, src.Misc, func(d, s *repo.PremiumMisc) {
			mergeWork(&d.Work, &s.Work)
			setStr(&d.Type, s.Type)
			mergeInto(&d.StudyModels, s.StudyModels, func(d, s *repo.StudyModels) {
				setPtr(&d.DiagnosticWax, s.DiagnosticWax)
				setSlice(&d.SelectedTeeth, s.SelectedTeeth)
			})
			mergeInto(&d.SportsGuard, s.SportsGuard, func(d, s *repo.SportsGuard) {
				setStr(&d.Colour, s.Colour)
			})
			mergeInto(&d.TW, s.TW, func(d, s *repo.TW) {
				setPtr(&d.WithReservoirs, s.WithReservoirs)
				setPtr(&d.WithoutReservoirs, s.WithoutReservoirs)
			})
			mergeInto(&d.NightGuard, s.NightGuard, func(d, s *repo.NightGuard) {
				setStr(&d.Material, s.Material)
				setPtr(&d.WithReservoir, s.WithReservoir)
				setPtr(&d.WithoutReservoir, s.WithoutReservoir)
			})
		})
	})
	return base
}

var (
	porcelainMargins = []string{"360", "Buccal Only"}
	ponticDesigns    = []string{"Full ridge", "Modify ridge lap", "No contact", "Point contact", "Point in socket (ovate)"}
	castMaterials    = []string{"NP (silver coloured)"}
	metalFreeTypes   = []string{"Composite Inlay/Onlay"}
	dentureKinds     = []string{"Denture Construction", "Denture Other"}
	dentureOptions   = []string{
		"Bite block", "Special Tray", "Clasps", "Mesh Reinforcement", "Try In", "Re-try in", "Finish",
		"Try In with metal framework CoCr", "Finish Acrylic", "Finish Flexi",
	}
	dentureOtherOptions = []string{"Reline", "Repair", "Addition"}
	premiumSubs         = []string{"Emax", "Zirconia", "Metal Free"}
	restorationTypes    = []string{"Single Unit Crown", "Veneer", "Maryland Bridge", "Conventional Bridge"}
	orthoTypes          = []string{"Fixed retainer", "Essix retainer"}
	miscTypes           = []string{"Study models", "Sports Guard", "TW", "Night Guard", "Vacuum formed Stent", "Re-etch Crown/Bridge"}
	nightGuardMaterials = []string{"Soft", "Hard", "Hard Acrylic"}
)

type checker struct{ err error }

func (c *checker) oneOf(field, v string, allowed []string) {
	if c.err == nil && v != "" && !slices.Contains(allowed, v) {
		c.err = &ValidationError{Field: field, Msg: fmt.Sprintf("%q is not one of %v", v, allowed)}
	}
}

func (c *checker) each(field string, vs, allowed []string) {
	for _, v := range vs {
		c.oneOf(field, v, allowed)
	}
}

func (c *checker) dentures(prefix string, d *repo.Dentures) {
	if d == nil {
		return
	}
	c.oneOf(prefix+".categoryType", d.CategoryType, dentureKinds)
	if d.Construction != nil {
		c.each(prefix+".construction.selectedOptions", d.Construction.SelectedOptions, dentureOptions)
		if n := d.Construction.Clasps; c.err == nil && n != nil && *n < 0 {
			c.err = &ValidationError{Field: prefix + ".construction.clasps", Msg: "must not be negative"}
		}
	}
	if d.Other != nil {
		c.each(prefix+".other.selectedOptions", d.Other.SelectedOptions, dentureOtherOptions)
	}
}

func (c *checker) bridge(field string, b *repo.Bridge) {
	if b != nil {
		c.oneOf(field, b.PonticDesign, ponticDesigns)
	}
}

// ValidateStandard checks the enumerated fields of a standard tree.
func ValidateStandard(t *repo.StandardTier) error {
	if t == nil {
		return nil
	}
	var c checker
	if cb := t.CrownBridge; cb != nil {
		if p := cb.PFM; p != nil {
			if p.SingleUnitCrown != nil {
				c.oneOf("standard.CrownBridge.pfm.singleUnitCrown.porcelainButtMargin", p.SingleUnitCrown.PorcelainButtMargin, porcelainMargins)
			}
			c.bridge("standard.CrownBridge.pfm.marylandBridge.ponticDesign", p.MarylandBridge)
			c.bridge("standard.CrownBridge.pfm.conventionalBridge.ponticDesign", p.ConventionalBridge)
		}
		if fc := cb.FullCast; fc != nil {
			c.oneOf("standard.CrownBridge.fullCast.materialType", fc.MaterialType, castMaterials)
			c.bridge("standard.CrownBridge.fullCast.conventionalBridge.ponticDesign", fc.ConventionalBridge)
		}
		if mf := cb.MetalFree; mf != nil {
			c.oneOf("standard.CrownBridge.metalFree.type", mf.Type, metalFreeTypes)
		}
		c.dentures("standard.CrownBridge.dentures", cb.Dentures)
	}
	c.dentures("standard.Dentures", t.Dentures)
	return c.err
}

// ValidatePremium checks the enumerated fields of a premium tree.
func ValidatePremium(t *repo.PremiumTier) error {
	if t == nil {
		return nil
	}
	var c checker
	if cb := t.CrownBridge; cb != nil {
		c.oneOf("premium.crownBridge.subCategory", cb.SubCategory, premiumSubs)
		if cb.Emax != nil {
			c.oneOf("premium.crownBridge.emax.type", cb.Emax.Type, restorationTypes)
		}
		if cb.Zirconia != nil {
			c.oneOf("premium.crownBridge.zirconia.type", cb.Zirconia.Type, restorationTypes)
		}
	}
	c.dentures("premium.dentures", t.Dentures)
	if t.Orthodontic != nil {
		c.oneOf("premium.orthodontic.type", t.Orthodontic.Type, orthoTypes)
	}
	if m := t.Misc; m != nil {
		c.oneOf("premium.misc.type", m.Type, miscTypes)
		if m.NightGuard != nil {
			c.oneOf("premium.misc.nightGuard.material", m.NightGuard.Material, nightGuardMaterials)
		}
	}
	return c.err
}
