package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Course catalog shapes. These wrappers are plain request/response plumbing;
// all course logic lives server-side.
type Course struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Cover       string `json:"cover"`
	TeacherName string `json:"teacher_name"`
}

type Chapter struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type Lesson struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type CourseCreateRequest struct {
	Title string  `json:"title"`
	Desc  string  `json:"desc,omitempty"`
	Cover string  `json:"cover,omitempty"`
	Price float64 `json:"price,omitempty"`
}

type ChapterCreateRequest struct {
	Title string `json:"title"`
	Rank  int    `json:"rank,omitempty"`
}

type LessonCreateRequest struct {
	Title   string `json:"title"`
	Type    string `json:"type"`
	Rank    int    `json:"rank,omitempty"`
	VideoID int64  `json:"video_id,omitempty"`
}

type CourseListQuery struct {
	Page    int
	Size    int
	Keyword string
}

type CourseList struct {
	Items []Course `json:"items"`
	Total int      `json:"total"`
	Page  int      `json:"page"`
	Size  int      `json:"size"`
}

// Courses fetches a catalog page.
func (c *Client) Courses(ctx context.Context, query CourseListQuery) (CourseList, error) {
	values := url.Values{}
	if query.Page > 0 {
		values.Set("page", strconv.Itoa(query.Page))
	}
	if query.Size > 0 {
		values.Set("size", strconv.Itoa(query.Size))
	}
	if query.Keyword != "" {
		values.Set("keyword", query.Keyword)
	}

	path := "/courses"
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var list CourseList
	if err := c.get(ctx, path, &list); err != nil {
		return CourseList{}, err
	}
	return list, nil
}

// CreateCourse creates a course shell for authoring.
func (c *Client) CreateCourse(ctx context.Context, req CourseCreateRequest) (Course, error) {
	var course Course
	if err := c.post(ctx, "/courses", req, &course); err != nil {
		return Course{}, err
	}
	return course, nil
}

// CreateChapter appends a chapter to a course.
func (c *Client) CreateChapter(ctx context.Context, courseID int64, req ChapterCreateRequest) (Chapter, error) {
	var chapter Chapter
	if err := c.post(ctx, fmt.Sprintf("/courses/%d/chapters", courseID), req, &chapter); err != nil {
		return Chapter{}, err
	}
	return chapter, nil
}

// CreateLesson appends a lesson to a chapter.
func (c *Client) CreateLesson(ctx context.Context, courseID, chapterID int64, req LessonCreateRequest) (Lesson, error) {
	var lesson Lesson
	path := fmt.Sprintf("/courses/%d/chapters/%d/lessons", courseID, chapterID)
	if err := c.post(ctx, path, req, &lesson); err != nil {
		return Lesson{}, err
	}
	return lesson, nil
}
