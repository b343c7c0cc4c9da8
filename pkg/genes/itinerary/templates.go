package itinerary

import "github.com/evoforge/evoforge/pkg/oracle"

const (
	TemplateSeed      = "itinerary_seed"
	TemplateCrossover = "itinerary_crossover"
	TemplateMutate    = "itinerary_mutate"
	TemplateEvaluate  = "itinerary_evaluate"
)

func init() {
	oracle.RegisterSharedTemplate(TemplateSeed, seedTemplate)
	oracle.RegisterSharedTemplate(TemplateCrossover, crossoverTemplate)
	oracle.RegisterSharedTemplate(TemplateMutate, mutateTemplate)
	oracle.RegisterSharedTemplate(TemplateEvaluate, evaluateTemplate)
}

const outputContract = `Return ONLY a single valid JSON object, with this exact structure:

{
  "days": [
    {
      "date": "YYYY-MM-DD",
      "activities": [
        {
          "time": "HH:MM",
          "location": "string",
          "description": "string",
          "estimated_cost": 0.0
        }
      ]
    }
  ],
  "hotels": {
    "name": "string",
    "address": "string",
    "total_cost": 0.0
  },
  "total_cost": 0.0
}

Important:
- Do NOT return a list or array as the root.
- Do NOT wrap the JSON in markdown formatting.
- Do NOT include any explanation or commentary.`

const seedTemplate = `You are an expert travel planner.

{{task}}

` + outputContract

const crossoverTemplate = `You are an expert travel planner.

Merge the two itineraries below into one stronger itinerary: keep the best days and activities from each, pick the better hotel, and recompute the total cost honestly.

Itinerary A:
{{parent_a}}

Itinerary B:
{{parent_b}}

` + outputContract

const mutateTemplate = `You are an expert travel planner.

Improve the itinerary below: raise cultural diversity, optimize time usage, and add meaningful local experiences while keeping the total cost close to the current level. Recompute the total cost honestly.

Current itinerary:
{{candidate}}

` + outputContract

const evaluateTemplate = `Score this travel plan (0-10):

- Budget Compliance (0-4)
- Experience Quality (0-3)
- Practicality (0-3)

Plan:
{{solution_text}}

Return only a score like: [8]`
