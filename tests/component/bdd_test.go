//go:build component
// +build component

package component

func (s *ComponentTestSuite) TestCreateUser() {
	_, when, then := s.gherkin()

	when().
		aCreateUserRequestIsIssued()

	then().
		theCreateUserResponseContainsAValidUser().
		listUsersContainsTheCreatedUser().
		anEventForTheUserCreationWillEventuallyBeProduced()
}

func (s *ComponentTestSuite) TestUpdateUser() {
	given, when, then := s.gherkin()

	given().
		anExistingUser()

	when().
		theUserGetsUpdated()

	then().
		theUpdateResponseReflectsTheUpdateOperation().
		anEventForTheUserUpdateWillEventuallyBeProduced()
}

func (s *ComponentTestSuite) TestLinkUsers() {
	given, when, then := s.gherkin()

	given().
		anExistingUser().
		aSecondExistingUser()

	when().
		theUsersGetLinked()

	then().
		theLinkIsEstablished().
		theGraphContainsTheEdge().
		bothUsersScoreReflectsTheLink().
		anEventForTheLinkWillEventuallyBeProduced()
}

func (s *ComponentTestSuite) TestDeleteLinkedUserIsRejected() {
	given, when, then := s.gherkin()

	given().
		anExistingUser().
		aSecondExistingUser().
		theUsersGetLinked()

	when().
		aUserDeletionRequestIsIssued()

	then().
		theDeletionIsRejectedWithConflict().
		listUsersContainsTheCreatedUser()
}

func (s *ComponentTestSuite) TestDeleteUser() {
	given, when, then := s.gherkin()

	given().
		anExistingUser()

	when().
		aUserDeletionRequestIsIssued()

	then().
		theDeletionSucceeds().
		listUsersDoesNotContainTheUser().
		anEventForTheUserDeletionWillEventuallyBeProduced()
}

func (s *ComponentTestSuite) TestUndoRedoDeletion() {
	given, when, then := s.gherkin()

	given().
		anExistingUser().
		aUserDeletionRequestIsIssued().
		theDeletionSucceeds()

	when().
		theLastOperationIsUndone()

	then().
		theUserReappearsWithItsOriginalID().
		theLastOperationIsRedone().
		listUsersDoesNotContainTheUser()
}
