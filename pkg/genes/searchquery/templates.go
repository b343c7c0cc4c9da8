package searchquery

import "github.com/evoforge/evoforge/pkg/oracle"

// Template names for the search strategy variant. TemplateEvaluate is used
// by the scoring side, not by reproduction.
const (
	TemplateSeed      = "searchquery_seed"
	TemplateCrossover = "searchquery_crossover"
	TemplateMutate    = "searchquery_mutate"
	TemplateEvaluate  = "searchquery_evaluate"
)

func init() {
	oracle.RegisterSharedTemplate(TemplateSeed, seedTemplate)
	oracle.RegisterSharedTemplate(TemplateCrossover, crossoverTemplate)
	oracle.RegisterSharedTemplate(TemplateMutate, mutateTemplate)
	oracle.RegisterSharedTemplate(TemplateEvaluate, evaluateTemplate)
}

const outputContract = `## Output Format:
Return ONLY a JSON object like:
{
  "user_query": "...",
  "dimensions": ["Dimension A", "Dimension B"],
  "keywords": {
    "Dimension A": ["keyword1", "keyword2", "keyword3"],
    "Dimension B": ["keyword1", "keyword2", "keyword3"]
  }
}

## Constraints:
- Use double quotes only
- No markdown or comments
- Output must only contain the JSON object`

const seedTemplate = `You are a Search Strategy Constructor.

Your task is to generate a set of diverse dimensions and meaningful keywords that will be used to form effective search queries in response to the user's question.

## User Query:
"{{user_query}}"

## Your Task:
1. Based on the user query, create 5-7 distinct dimensions that capture different angles, contexts, or subtopics.
2. For each dimension, generate 3-5 high-quality, non-overlapping keywords or phrases.
3. Ensure diversity across dimensions and semantic richness in keywords.

` + outputContract

const crossoverTemplate = `You are a Search Strategy Constructor.

Combine the two search strategies below into one stronger strategy. Keep the shared user query, merge the most promising dimensions, and for each dimension keep the keyword choices most likely to retrieve authoritative, comprehensive content.

## Strategy A:
{{parent_a}}

## Strategy B:
{{parent_b}}

` + outputContract

const mutateTemplate = `You are an Expert Information Retrieval Strategist.

Improve the search strategy below by replacing the keywords least likely to retrieve authoritative content with stronger alternatives. Keep the user query and dimensions; change keywords only.

## Current Strategy:
{{candidate}}

` + outputContract

const evaluateTemplate = `You are a Professional Information Retrieval Evaluator.

Your task is to assess how well a web search result satisfies a user's information need based on the user query and the result content.

## Scoring Rubric (0-10 scale):

1. Relevance - Directly related to the user's query
2. Depth - Provides insight, context, or meaningful data
3. Specificity - Avoids generic/ambiguous content
4. Authority - Comes from a credible or expert source
5. Diversity - Adds a distinct perspective, not repetitive

## Scoring Guide:

- 10: Excellent across all 5 criteria
- 8: Strong on most criteria
- 6: Moderate relevance or depth
- 4: Partially related, shallow or vague
- 2: Barely related or poor quality
- 0: Irrelevant, misleading, or NO SEARCH RESULTS were returned

## Evaluation Target:
{{solution_text}}

## Important:
If there are no search results, you MUST return a score of 0.

Return ONLY a numeric score between 0 and 10 as plain text.`
