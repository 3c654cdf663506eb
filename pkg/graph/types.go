package graph

import (
	"echo-assistant-be/pkg/store"
)

type itemReference struct {
	DriveID string `json:"driveId"`
	SiteID  string `json:"siteId"`
	ID      string `json:"id"`
}

type fileFacet struct {
	MimeType string `json:"mimeType"`
}

type folderFacet struct {
	ChildCount int `json:"childCount"`
}

// driveItem is the subset of the Graph driveItem resource the assistant reads.
type driveItem struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	WebURL          string        `json:"webUrl"`
	Size            int64         `json:"size"`
	DownloadURL     string        `json:"@microsoft.graph.downloadUrl"`
	File            *fileFacet    `json:"file"`
	Folder          *folderFacet  `json:"folder"`
	ParentReference itemReference `json:"parentReference"`
	RemoteItem      *driveItem    `json:"remoteItem"`
}

// driveID resolves the owning drive, looking through remoteItem for items
// shared from another drive.
func (d driveItem) driveID() string {
	if d.ParentReference.DriveID != "" {
		return d.ParentReference.DriveID
	}
	if d.RemoteItem != nil {
		return d.RemoteItem.ParentReference.DriveID
	}
	return ""
}

// toCandidate maps a Graph item to a FileCandidate tagged with container.
// Missing facets get explicit defaults.
func (d driveItem) toCandidate(container string) store.FileCandidate {
	mime := ""
	if d.File != nil {
		mime = d.File.MimeType
	} else if d.RemoteItem != nil && d.RemoteItem.File != nil {
		mime = d.RemoteItem.File.MimeType
	}
	downloadURL := d.DownloadURL
	if downloadURL == "" && d.RemoteItem != nil {
		downloadURL = d.RemoteItem.DownloadURL
	}
	if container == "" {
		container = store.PersonalContainer
	}
	return store.FileCandidate{
		ID:          d.ID,
		Name:        d.Name,
		WebURL:      d.WebURL,
		DownloadURL: downloadURL,
		DriveID:     d.driveID(),
		ContainerID: container,
		MimeType:    mime,
		Size:        d.Size,
		IsFolder:    d.Folder != nil || (d.RemoteItem != nil && d.RemoteItem.Folder != nil),
	}
}

type collection[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

type Site struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	WebURL      string `json:"webUrl"`
}

type Drive struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	DriveType string `json:"driveType"`
}

type Permission struct {
	ID    string   `json:"id"`
	Roles []string `json:"roles"`
}

type Profile struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// Email returns mail, falling back to the UPN.
func (p Profile) Email() string {
	if p.Mail != "" {
		return p.Mail
	}
	return p.UserPrincipalName
}

// SearchHit is an unhydrated search result.
type SearchHit struct {
	ID      string
	Name    string
	DriveID string
}
