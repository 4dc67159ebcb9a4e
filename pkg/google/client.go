package google

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"
)

// NewClient creates a Google Tasks client for the task list titled listTitle.
// httpClient must already carry credentials (see auth.GetClient).
func NewClient(ctx context.Context, httpClient *http.Client, listTitle string, opts ...option.ClientOption) (*TaskListClient, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	srv, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Tasks client: %w", err)
	}

	listID, err := FindTaskList(ctx, srv, listTitle)
	if err != nil {
		return nil, err
	}
	return NewTaskListClient(srv, listID), nil
}

// FindTaskList returns the id of the task list titled title.
func FindTaskList(ctx context.Context, srv *tasks.Service, title string) (string, error) {
	var listID string
	err := srv.Tasklists.List().MaxResults(pageSize).Pages(ctx, func(page *tasks.TaskLists) error {
		for _, item := range page.Items {
			if listID == "" && item.Title == title {
				listID = item.Id
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("unable to retrieve task lists: %w", err)
	}
	if listID == "" {
		return "", fmt.Errorf("task list '%s' not found", title)
	}
	return listID, nil
}
