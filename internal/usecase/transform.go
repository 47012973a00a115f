package usecase

import "github.com/pauldariye/greenhouse-proxy-server/internal/domain"

// TransformListings maps upstream job records to the public listing shape.
func TransformListings(jobs []domain.RawJob) []domain.Listing {
	listings := make([]domain.Listing, 0, len(jobs))
	for _, job := range jobs {
		listings = append(listings, transformListing(job))
	}
	return listings
}

func transformListing(job domain.RawJob) domain.Listing {
	questions := make([]domain.Question, 0, len(job.Questions))
	for _, q := range job.Questions {
		questions = append(questions, transformQuestion(q))
	}
	return domain.Listing{
		ID:          job.ID,
		Title:       job.Title,
		Content:     job.Content,
		Offices:     job.Offices,
		Departments: job.Departments,
		Questions:   questions,
	}
}

// transformQuestion merges the first field definition over the base
// {label, required, value: ""}. Keys from the field win on collision.
// A question without fields keeps the base object.
func transformQuestion(q domain.RawQuestion) domain.Question {
	out := domain.Question{
		"label":    q.Label,
		"required": q.Required,
		"value":    "",
	}
	if len(q.Fields) == 0 {
		return out
	}
	for k, v := range q.Fields[0] {
		out[k] = v
	}
	return out
}
