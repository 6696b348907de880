package graph

import (
	"strings"
	"unicode"
)

// supertypes maps an abstract or general element type to the types it
// includes. Entries may name other supertypes; expansion is transitive.
var supertypes = map[string][]string{
	"ifcwall":           {"ifcwallstandardcase", "ifcwallelementedcase"},
	"ifcslab":           {"ifcslabstandardcase", "ifcslabelementedcase"},
	"ifcbeam":           {"ifcbeamstandardcase"},
	"ifccolumn":         {"ifccolumnstandardcase"},
	"ifcdoor":           {"ifcdoorstandardcase"},
	"ifcwindow":         {"ifcwindowstandardcase"},
	"ifcmember":         {"ifcmemberstandardcase"},
	"ifcplate":          {"ifcplatestandardcase"},
	"ifcopeningelement": {"ifcopeningstandardcase"},
	"ifcflowsegment":    {"ifcpipesegment", "ifcductsegment", "ifccablesegment", "ifccablecarriersegment"},
	"ifcflowfitting":    {"ifcpipefitting", "ifcductfitting", "ifccablefitting", "ifccablecarrierfitting", "ifcjunctionbox"},
	"ifcflowterminal": {
		"ifcoutlet", "ifclightfixture", "ifcairterminal", "ifcsanitaryterminal", "ifcwasteterminal",
		"ifcfiresuppressionterminal", "ifcelectricappliance", "ifclamp", "ifcstackterminal",
		"ifcaudiovisualappliance", "ifccommunicationsappliance", "ifcspaceheater",
	},
	"ifcflowcontroller": {
		"ifcvalve", "ifcdamper", "ifcswitchingdevice", "ifcprotectivedevice", "ifcelectrictimecontrol",
		"ifcflowmeter", "ifcelectricdistributionboard", "ifcairterminalbox",
	},
	"ifcenergyconversiondevice": {
		"ifcboiler", "ifcchiller", "ifcairtoairheatrecovery", "ifccoil", "ifccoolingtower",
		"ifcheatexchanger", "ifctransformer", "ifcunitaryequipment", "ifcburner", "ifcevaporator",
		"ifccondenser", "ifcelectricgenerator", "ifcelectricmotor",
	},
	"ifcflowmovingdevice":    {"ifcpump", "ifcfan", "ifccompressor"},
	"ifcflowstoragedevice":   {"ifctank", "ifcelectricflowstoragedevice"},
	"ifcflowtreatmentdevice": {"ifcfilter", "ifcinterceptor", "ifcductsilencer"},
	"ifcdistributioncontrolelement": {
		"ifcsensor", "ifcactuator", "ifcalarm", "ifccontroller", "ifcflowinstrument",
		"ifcunitarycontrolelement", "ifcprotectivedevicetrippingunit",
	},
	"ifcdistributionflowelement": {
		"ifcflowsegment", "ifcflowfitting", "ifcflowterminal", "ifcflowcontroller",
		"ifcenergyconversiondevice", "ifcflowmovingdevice", "ifcflowstoragedevice", "ifcflowtreatmentdevice",
	},
	"ifcdistributionelement": {"ifcdistributionflowelement", "ifcdistributioncontrolelement"},
	"ifcbuildingelement": {
		"ifcwall", "ifcslab", "ifcbeam", "ifccolumn", "ifcdoor", "ifcwindow", "ifcmember", "ifcplate",
		"ifcstair", "ifcstairflight", "ifcramp", "ifcrampflight", "ifcroof", "ifccovering",
		"ifccurtainwall", "ifcrailing", "ifcfooting", "ifcpile", "ifcbuildingelementproxy",
		"ifcchimney", "ifcshadingdevice",
	},
	"ifcelement": {
		"ifcbuildingelement", "ifcdistributionelement", "ifcfurnishingelement", "ifcopeningelement",
		"ifcelementassembly", "ifctransportelement", "ifcdiscreteaccessory", "ifcfastener",
	},
}

var expanded = expandSupertypes()

func expandSupertypes() map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{}, len(supertypes))
	for key := range supertypes {
		set := make(map[string]struct{})
		var walk func(string)
		walk = func(name string) {
			for _, child := range supertypes[name] {
				if _, seen := set[child]; seen {
					continue
				}
				set[child] = struct{}{}
				walk(child)
			}
		}
		walk(key)
		out[key] = set
	}
	return out
}

// NormalizeType folds a type name to its lookup key: lower case with the
// "ifc" prefix, so "Outlet", "outlet" and "IfcOutlet" compare equal.
func NormalizeType(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return ""
	}
	if !strings.HasPrefix(key, "ifc") {
		key = "ifc" + key
	}
	return key
}

// TypeMatches reports whether a product of concrete type productType is
// selected by a request for requested. IfcProduct selects every product.
func TypeMatches(productType, requested string) bool {
	want := NormalizeType(requested)
	if want == "" {
		return false
	}
	have := NormalizeType(productType)
	if have == want || want == "ifcproduct" {
		return true
	}
	_, ok := expanded[want][have]
	return ok
}

var displayNames = map[string]string{
	"ifcspace":                     "Room / Space",
	"ifcbuildingelementproxy":      "Generic Element",
	"ifcelectricdistributionboard": "Distribution Board",
	"ifcwallstandardcase":          "Wall (Standard Case)",
	"ifcslabstandardcase":          "Slab (Standard Case)",
	"ifcdoorstandardcase":          "Door (Standard Case)",
	"ifcwindowstandardcase":        "Window (Standard Case)",
	"ifcopeningelement":            "Opening",
	"ifcflowsegment":               "Flow Segment",
	"ifcswitchingdevice":           "Switch",
	"ifclightfixture":              "Light Fixture",
}

// DisplayName returns a human label for an element type name.
func DisplayName(typeName string) string {
	if label, ok := displayNames[NormalizeType(typeName)]; ok {
		return label
	}
	name := strings.TrimSpace(typeName)
	if len(name) > 3 && strings.EqualFold(name[:3], "ifc") {
		name = name[3:]
	}
	if name == "" {
		return typeName
	}
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && !unicode.IsUpper(runes[i-1]) {
			b.WriteRune(' ')
		}
		if i == 0 {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
