package query

import (
	"ifcquery/pkg/queryapi"
)

func elementParam(required bool) queryapi.Parameter {
	return queryapi.Parameter{Name: queryapi.ParamElementType, Required: required, Description: "element type, e.g. IfcOutlet; supertypes such as IfcFlowTerminal expand"}
}

var (
	storeyParam    = queryapi.Parameter{Name: queryapi.ParamStorey, Description: "storey id or case-insensitive part of its name"}
	spaceTypeParam = queryapi.Parameter{Name: queryapi.ParamSpaceType, Required: true, Description: "space usage label, matched by the session's space-match policy"}
	optSpaceType   = queryapi.Parameter{Name: queryapi.ParamSpaceType, Description: "space usage label, matched by the session's space-match policy"}
	hostTypeParam  = queryapi.Parameter{Name: queryapi.ParamHostType, Required: true, Description: "host element type or host material (drywall, concrete, brick, wood)"}
	systemParam    = queryapi.Parameter{Name: queryapi.ParamSystem, Description: "case-insensitive part of a system name"}
	rankByParam    = queryapi.Parameter{Name: queryapi.ParamRankBy, Description: "grouping of the ranking", Enum: []string{string(queryapi.RankByStorey), string(queryapi.RankBySpace)}}
	perAreaParam   = queryapi.Parameter{Name: queryapi.ParamPerArea, Description: "divide counts by the grouped space area"}
	detailParam    = queryapi.Parameter{Name: queryapi.ParamDetail, Description: "list matching elements instead of counting them"}
	limitParam     = queryapi.Parameter{Name: queryapi.ParamLimit, Description: "maximum rows; 0 returns all"}
)

func params(list ...queryapi.Parameter) []queryapi.Parameter { return list }

func catalogue() []template {
	return []template{
		{desc: queryapi.Descriptor{QueryType: queryapi.CountTotal, Category: queryapi.CategoryQuantity, Title: "Total count", Description: "Number of elements of a type.", Parameters: params(elementParam(true)), Result: queryapi.KindValue}, run: countTotal},
		{desc: queryapi.Descriptor{QueryType: queryapi.CountByStorey, Category: queryapi.CategoryQuantity, Title: "Count by storey", Description: "Elements per resolved storey, in elevation order.", Parameters: params(elementParam(true)), Result: queryapi.KindTable}, run: countByStorey},

		{desc: queryapi.Descriptor{QueryType: queryapi.SumLengthTotal, Category: queryapi.CategoryMeasurement, Title: "Total length", Parameters: params(elementParam(true)), Result: queryapi.KindValue}, run: sumTotal},
		{desc: queryapi.Descriptor{QueryType: queryapi.SumAreaTotal, Category: queryapi.CategoryMeasurement, Title: "Total area", Parameters: params(elementParam(true)), Result: queryapi.KindValue}, run: sumTotal},
		{desc: queryapi.Descriptor{QueryType: queryapi.SumVolumeTotal, Category: queryapi.CategoryMeasurement, Title: "Total volume", Parameters: params(elementParam(true)), Result: queryapi.KindValue}, run: sumTotal},
		{desc: queryapi.Descriptor{QueryType: queryapi.SumLengthByStorey, Category: queryapi.CategoryMeasurement, Title: "Length by storey", Parameters: params(elementParam(true)), Result: queryapi.KindTable}, run: sumLengthByStorey},
		{desc: queryapi.Descriptor{QueryType: queryapi.LengthBySystem, Category: queryapi.CategoryMeasurement, Title: "Length by system", Parameters: params(elementParam(true)), Result: queryapi.KindTable}, run: lengthBySystem},

		{desc: queryapi.Descriptor{QueryType: queryapi.ElementsInSpaceType, Category: queryapi.CategoryContext, Title: "Elements in space type", Parameters: params(elementParam(true), spaceTypeParam, detailParam), Result: queryapi.KindValue}, run: elementsInSpaceType},
		{desc: queryapi.Descriptor{QueryType: queryapi.ElementsInHost, Category: queryapi.CategoryContext, Title: "Elements in host", Description: "Opening fillers whose host matches a type or material.", Parameters: params(elementParam(true), hostTypeParam), Result: queryapi.KindTable}, run: elementsInHost},
		{desc: queryapi.Descriptor{QueryType: queryapi.ElementsPerSpace, Category: queryapi.CategoryContext, Title: "Elements per space", Parameters: params(elementParam(true), limitParam), Result: queryapi.KindTable}, run: elementsPerSpace},
		{desc: queryapi.Descriptor{QueryType: queryapi.HostClassification, Category: queryapi.CategoryContext, Title: "Host material classification", Parameters: params(elementParam(true)), Result: queryapi.KindTable}, run: hostClassification},

		{desc: queryapi.Descriptor{QueryType: queryapi.SystemMembershipListing, Category: queryapi.CategorySystems, Title: "Elements by system", Description: "Systems grouped by kind with their member types.", Parameters: params(elementParam(false), systemParam), Result: queryapi.KindTable}, run: systemMembershipListing},
		{desc: queryapi.Descriptor{QueryType: queryapi.UnassignedSystemProducts, Category: queryapi.CategorySystems, Title: "MEP elements without system", Parameters: params(elementParam(false)), Result: queryapi.KindTable}, run: unassignedSystemProducts},
		{desc: queryapi.Descriptor{QueryType: queryapi.ElementsPerCircuit, Category: queryapi.CategorySystems, Title: "Elements per circuit", Parameters: params(elementParam(true)), Result: queryapi.KindTable}, run: elementsPerCircuit},

		{desc: queryapi.Descriptor{QueryType: queryapi.CountRooms, Category: queryapi.CategorySpaces, Title: "Room count", Parameters: params(optSpaceType), Result: queryapi.KindValue}, run: countRooms},
		{desc: queryapi.Descriptor{QueryType: queryapi.NetAreaPerStorey, Category: queryapi.CategorySpaces, Title: "Net area per storey", Result: queryapi.KindTable}, run: netAreaPerStorey},
		{desc: queryapi.Descriptor{QueryType: queryapi.AreaBySpaceType, Category: queryapi.CategorySpaces, Title: "Area by space type", Parameters: params(spaceTypeParam), Result: queryapi.KindValue}, run: areaBySpaceType},
		{desc: queryapi.Descriptor{QueryType: queryapi.ElementsPerArea, Category: queryapi.CategorySpaces, Title: "Elements per area", Parameters: params(elementParam(true), spaceTypeParam), Result: queryapi.KindValue}, run: elementsPerArea},

		{desc: queryapi.Descriptor{QueryType: queryapi.ComplianceAllSpaces, Category: queryapi.CategoryCompliance, Title: "Every space has element", Description: "Passes when each matching space holds at least one element of the type.", Parameters: params(elementParam(true), spaceTypeParam), Result: queryapi.KindCompliance}, run: complianceAllSpaces},

		{desc: queryapi.Descriptor{QueryType: queryapi.PlanningDensityRanking, Category: queryapi.CategoryPlanning, Title: "Density ranking", Parameters: params(elementParam(false), rankByParam, perAreaParam, limitParam), Result: queryapi.KindTable}, run: planningDensityRanking},

		{desc: queryapi.Descriptor{QueryType: queryapi.CountMaintainable, Category: queryapi.CategoryMaintenance, Title: "Maintainable devices", Parameters: params(detailParam), Result: queryapi.KindValue}, run: countMaintainable},
		{desc: queryapi.Descriptor{QueryType: queryapi.LocateDistributionBoards, Category: queryapi.CategoryMaintenance, Title: "Distribution board locations", Result: queryapi.KindTable}, run: locateDistributionBoards},

		{desc: queryapi.Descriptor{QueryType: queryapi.CompoundFilteredCount, Category: queryapi.CategoryCompound, Title: "Filtered count", Description: "Elements of a type on a storey and in a space type.", Parameters: params(elementParam(true), storeyParam, optSpaceType), Result: queryapi.KindValue}, run: compoundFilteredCount},

		{desc: queryapi.Descriptor{QueryType: queryapi.ParapetChannels, Category: queryapi.CategoryAnalysis, Title: "Parapet channels", Description: "Cable carriers identified by name or installation height.", Parameters: params(elementParam(false)), Result: queryapi.KindTable}, run: parapetChannels},
		{desc: queryapi.Descriptor{QueryType: queryapi.PipeClassification, Category: queryapi.CategoryAnalysis, Title: "Pipe classification", Description: "Pipe segments split into drinking water and other lines.", Parameters: params(elementParam(false)), Result: queryapi.KindTable}, run: pipeClassification},
	}
}
