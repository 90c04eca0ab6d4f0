package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// profileResponse is the /users/me shape: the user plus the split name.
type profileResponse struct {
	User
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func toProfile(u User) profileResponse {
	first, last := splitName(u.Name)
	return profileResponse{User: u, FirstName: first, LastName: last}
}

// getMe returns the caller's profile
func getMe(c *gin.Context) {
	user, err := store.GetUserByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondStoreError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, toProfile(user))
}

// updateMe updates the caller's profile. First and last name are joined
// server-side; a present password is rehashed and never echoed back.
func updateMe(c *gin.Context) {
	userID := currentUserID(c)

	user, err := store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondStoreError(c, err, "User")
		return
	}

	var req struct {
		FirstName *string `json:"firstName"`
		LastName  *string `json:"lastName"`
		Email     *string `json:"email"`
		DOB       *Date   `json:"dob"`
		Mobile    *string `json:"mobile"`
		Password  *string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.FirstName != nil || req.LastName != nil {
		first, last := splitName(user.Name)
		if req.FirstName != nil {
			first = *req.FirstName
		}
		if req.LastName != nil {
			last = *req.LastName
		}
		user.Name = strings.TrimSpace(first + " " + last)
	}
	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
			return
		}
		user.Email = email
	}
	if req.DOB != nil {
		user.DOB = req.DOB
	}
	if req.Mobile != nil {
		user.Mobile = req.Mobile
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := hashPassword(*req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		user.PasswordHash = hash
	}

	updated, err := store.UpdateUser(c.Request.Context(), user)
	if err != nil {
		if err == ErrDuplicateEmail {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email already in use"})
			return
		}
		respondStoreError(c, err, "User")
		return
	}

	c.JSON(http.StatusOK, toProfile(updated))
}

// deleteMe deletes the account and everything it owns
func deleteMe(c *gin.Context) {
	userID := currentUserID(c)
	if err := store.DeleteUser(c.Request.Context(), userID); err != nil {
		respondStoreError(c, err, "User")
		return
	}

	invalidateUserCache(c.Request.Context(), userID)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, "", -1, "/", "", cfg.SecureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}
